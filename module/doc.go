// Package module groups container registrations into feature modules with
// a register, start and stop lifecycle.
//
// A Registry registers every module, then starts them in order. Stopping a
// module, alone with Stop or during StopAll, calls its Stop hook and then
// unregisters it from the container, which drops its module-scoped
// instances while keeping its registrations.
//
//	reg := module.NewRegistry(container)
//	_ = reg.Add(network.Module())
//	_ = reg.Add(settings.Module())
//	if err := reg.RegisterAll(ctx); err != nil { ... }
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(ctx)
package module
