// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[syncqueue.Sink]()
//	reg.Register("log", func(conf map[string]any) (syncqueue.Sink, error) {
//	    return syncqueue.LogSink{}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "log"})
package factory
