package di

import "reflect"

// KeyNames defines the capability keys the host registers before the Startup
// adds its own services.
type KeyNames struct {
	Environment     string
	Lifetime        string
	PipelineBuilder string
	LoggerFactory   string
	Logger          string
	Config          string
}

// Keys contains the keys of every built-in host service.
var Keys = KeyNames{
	Environment:     "gohost.environment",
	Lifetime:        "gohost.lifetime",
	PipelineBuilder: "gohost.pipeline_builder",
	LoggerFactory:   "gohost.logger_factory",
	Logger:          "gohost.logger",
	Config:          "gohost.config",
}

// KeyOf derives a capability key from a Go type, qualified by its package
// path so equally named types from different packages do not collide.
//
//	reg.AddSingleton(di.KeyOf[*Counter](), NewCounter)
func KeyOf[T any]() string {
	return typeKey(reflect.TypeOf((*T)(nil)).Elem())
}

func typeKey(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeKey(t.Elem())
	case reflect.Slice:
		return "[]" + typeKey(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
