package compute

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// DefaultEntry is the exported function a kernel runs when the params
// name none.
const DefaultEntry = "run"

// KernelParams is the OpCreate payload: a core wasm module exporting
//
//	memory            linear memory
//	alloc(size) ptr   bump allocator for I/O staging
//	run(in, n, out) m the kernel entry: reads n f32 values at in,
//	                  writes m f32 values at out, returns m
type KernelParams struct {
	Module []byte
	Entry  string
}

// Dispatch is the OpInvoke payload: one kernel execution over a copied
// input buffer.
type Dispatch struct {
	Input []float32
}

// Config tunes the wasm runtime backing all kernels.
type Config struct {
	// MemoryLimitPages caps each kernel instance's linear memory in
	// 64KB pages. 0 means the runtime default.
	MemoryLimitPages uint32
}

type kernel struct {
	mod        api.Module
	run        api.Function
	alloc      api.Function
	lastOutput []float32
	dispatches uint64
}

// Drop implements registry.Dropper: kernel instances release their
// wasm module when their slot is freed.
func (k *kernel) Drop() {
	_ = k.mod.Close(context.Background())
}

// Runner is the compute subsystem adapter: it owns the wazero runtime
// and every kernel instance, standing in for a GPU offload queue with
// sandboxed wasm kernels.
type Runner struct {
	ctx     context.Context
	runtime wazero.Runtime
	table   *registry.Table
}

// NewRunner creates the compute adapter and its wasm runtime. ctx
// bounds all kernel executions.
func NewRunner(ctx context.Context, table *registry.Table, cfg Config) *Runner {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Runner{
		ctx:     ctx,
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		table:   table,
	}
}

func (r *Runner) Subsystem() ferricia.Subsystem { return ferricia.SubsystemCompute }

// Apply executes one compute command.
func (r *Runner) Apply(cmd command.Command) command.Result {
	switch cmd.Op {
	case command.OpCreate:
		params, ok := cmd.Payload.(KernelParams)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemCompute, "create payload must be KernelParams, got %T", cmd.Payload))
		}
		k, err := r.instantiate(params)
		if err != nil {
			return fail(err)
		}
		h, err := r.table.Allocate(k)
		if err != nil {
			k.Drop()
			return fail(err)
		}
		return command.Result{Handle: h}

	case command.OpDestroy:
		if err := r.table.Free(cmd.Handle); err != nil {
			return fail(err)
		}
		return command.Result{Handle: cmd.Handle}

	case command.OpInvoke:
		v, ok := r.table.Resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemCompute, uint64(cmd.Handle)))
		}
		d, ok := cmd.Payload.(Dispatch)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemCompute, "invoke payload must be Dispatch, got %T", cmd.Payload))
		}
		out, err := r.dispatch(v.(*kernel), d.Input)
		if err != nil {
			return fail(err)
		}
		return command.Result{Handle: cmd.Handle, Value: out}

	case command.OpSetProp:
		return fail(errors.InvalidArgument(ferricia.SubsystemCompute, "kernels have no settable properties"))
	}
	return fail(errors.InvalidArgument(ferricia.SubsystemCompute, "unknown op %v", cmd.Op))
}

func (r *Runner) instantiate(params KernelParams) (*kernel, error) {
	entry := params.Entry
	if entry == "" {
		entry = DefaultEntry
	}

	mod, err := r.runtime.Instantiate(r.ctx, params.Module)
	if err != nil {
		return nil, errors.External(ferricia.SubsystemCompute, -1, err)
	}

	k := &kernel{
		mod:   mod,
		run:   mod.ExportedFunction(entry),
		alloc: mod.ExportedFunction("alloc"),
	}
	if k.run == nil || k.alloc == nil || mod.Memory() == nil {
		_ = mod.Close(r.ctx)
		return nil, errors.InvalidArgument(ferricia.SubsystemCompute,
			"kernel must export memory, alloc and %q", entry)
	}
	return k, nil
}

// dispatch stages the input in kernel memory, runs the entry, and
// copies the output back out. All data crosses by value; the kernel
// never sees host memory.
func (r *Runner) dispatch(k *kernel, input []float32) ([]float32, error) {
	n := uint32(len(input))
	byteLen := uint64(n) * 4

	inPtr, err := k.allocate(r.ctx, byteLen)
	if err != nil {
		return nil, err
	}
	outPtr, err := k.allocate(r.ctx, byteLen)
	if err != nil {
		return nil, err
	}

	mem := k.mod.Memory()
	for i, v := range input {
		if !mem.WriteFloat32Le(inPtr+uint32(i)*4, v) {
			return nil, errors.External(ferricia.SubsystemCompute, -2, nil)
		}
	}

	results, err := k.run.Call(r.ctx, uint64(inPtr), uint64(n), uint64(outPtr))
	if err != nil {
		// Traps surface verbatim so the host can diagnose the kernel.
		return nil, errors.External(ferricia.SubsystemCompute, -3, err)
	}

	written := uint32(api.DecodeI32(results[0]))
	if written > n {
		return nil, errors.External(ferricia.SubsystemCompute, -4, nil)
	}
	out := make([]float32, written)
	for i := range out {
		v, ok := mem.ReadFloat32Le(outPtr + uint32(i)*4)
		if !ok {
			return nil, errors.External(ferricia.SubsystemCompute, -2, nil)
		}
		out[i] = v
	}

	k.dispatches++
	k.lastOutput = out
	return out, nil
}

func (k *kernel) allocate(ctx context.Context, size uint64) (uint32, error) {
	results, err := k.alloc.Call(ctx, size)
	if err != nil {
		return 0, errors.External(ferricia.SubsystemCompute, -3, err)
	}
	return uint32(api.DecodeI32(results[0])), nil
}

// Tick is a no-op: dispatches run synchronously during Apply, on the
// loop goroutine like every other mutation.
func (r *Runner) Tick(time.Duration) error { return nil }

// Collect writes every kernel's dispatch stats into the snapshot.
func (r *Runner) Collect(s *snapshot.Snapshot) {
	r.table.Each(func(h registry.Handle, v any) bool {
		k := v.(*kernel)
		out := make([]float32, len(k.lastOutput))
		copy(out, k.lastOutput)
		s.Kernels[h] = snapshot.KernelState{
			Handle:     h,
			Dispatches: k.dispatches,
			LastOutput: out,
		}
		return true
	})
}

// Shutdown closes the wasm runtime and with it every remaining kernel.
func (r *Runner) Shutdown() {
	_ = r.runtime.Close(r.ctx)
}

func fail(err error) command.Result {
	return command.Result{Err: err}
}
