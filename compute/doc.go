// Package compute is the kernel-dispatch subsystem adapter.
//
// Kernels are sandboxed WebAssembly modules with a tiny flat ABI:
// alloc for I/O staging and an entry that maps n input f32 values to m
// output f32 values. The host stages inputs by copy, runs the kernel
// on the engine loop goroutine, and copies outputs back; a kernel
// never touches host memory and a trap is just an ExternalFailure on
// the originating command.
package compute
