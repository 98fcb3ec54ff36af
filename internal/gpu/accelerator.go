// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pbr"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// fenceTimeout bounds the wait for one kernel submission.
const fenceTimeout = 5 * time.Second

// KernelAccelerator runs map kernels as wgpu/hal compute pipelines. It
// implements the pbr.Accelerator interface.
//
// Every kernel is compiled from WGSL at Init. A kernel that fails to compile
// is reported as unavailable and runs on the CPU; the others stay usable.
// Submissions are serialized on the device queue and read back on a
// separate goroutine.
type KernelAccelerator struct {
	mu sync.Mutex

	bottomUp bool

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	programs   map[pbr.Kernel]*program
	failed     map[pbr.Kernel]error

	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

type program struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

var _ pbr.Accelerator = (*KernelAccelerator)(nil)

// Name returns "wgpu".
func (a *KernelAccelerator) Name() string { return "wgpu" }

// SetLogger sets the logger for the GPU accelerator.
// Called by pbr.SetLogger to propagate logging configuration.
func (a *KernelAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetBottomUp marks surfaces whose storage origin is the bottom-left
// pixel. Rows are then flipped on upload and readback, and kernels resolve
// vertical neighbors accordingly.
func (a *KernelAccelerator) SetBottomUp(bottomUp bool) {
	a.mu.Lock()
	a.bottomUp = bottomUp
	a.mu.Unlock()
}

// CanAccelerate reports whether the kernel program is loaded.
func (a *KernelAccelerator) CanAccelerate(k pbr.Kernel) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady && a.programs[k] != nil
}

// Init opens a GPU device and compiles every kernel. It returns an error
// wrapping pbr.ErrCapabilityUnavailable when no device can be opened, and
// pbr.ErrKernelInitializationFailed when no kernel could be built.
func (a *KernelAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gpuReady {
		return nil
	}
	if err := a.initGPU(); err != nil {
		a.destroyPipelines()
		a.releaseDevice()
		return err
	}
	return nil
}

// Close releases pipelines and, unless the device is shared, the device.
func (a *KernelAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyPipelines()
	a.releaseDevice()
}

// SetDeviceProvider switches the accelerator to a GPU device owned by the
// host application. The provider must be a gpucontext.DeviceProvider that
// also exposes HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
func (a *KernelAccelerator) SetDeviceProvider(provider any) error {
	if _, ok := provider.(gpucontext.DeviceProvider); !ok {
		return errors.New("gpu-pbr: provider is not a gpucontext.DeviceProvider")
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("gpu-pbr: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("gpu-pbr: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("gpu-pbr: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	a.releaseDevice()

	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu-pbr: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("gpu-pbr: switched to shared GPU device")
	return nil
}

// Dispatch runs kernel k over src on the GPU. The Result is delivered from
// a separate goroutine once the fence signals and the destination buffer
// has been read back.
func (a *KernelAccelerator) Dispatch(ctx context.Context, k pbr.Kernel, src *pbr.Raster, params pbr.KernelParams) <-chan pbr.Result {
	out := make(chan pbr.Result, 1)
	if err := src.Validate(); err != nil {
		out <- pbr.Result{Err: err}
		return out
	}
	bottomUp, err := a.unavailable(k)
	if err != nil {
		out <- pbr.Result{Err: err}
		return out
	}

	w, h := src.Width(), src.Height()
	upload := packSurface(src.Pix(), w, h, bottomUp)
	go func() {
		if err := ctx.Err(); err != nil {
			out <- pbr.Result{Err: fmt.Errorf("%w: %w", pbr.ErrReadbackFailed, err)}
			return
		}
		pix, err := a.run(k, upload, w, h, bottomUp, params)
		if err != nil {
			out <- pbr.Result{Err: err}
			return
		}
		r, err := pbr.NewRasterFrom(w, h, pix)
		if err != nil {
			out <- pbr.Result{Err: fmt.Errorf("%w: %w", pbr.ErrReadbackFailed, err)}
			return
		}
		out <- pbr.Result{Raster: r}
	}()
	return out
}

// unavailable returns the fallback error for k, or nil and the surface
// orientation if k can run.
func (a *KernelAccelerator) unavailable(k pbr.Kernel) (bottomUp bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return false, fmt.Errorf("%w: GPU not initialized", pbr.ErrCapabilityUnavailable)
	}
	if err, ok := a.failed[k]; ok {
		return false, err
	}
	if a.programs[k] == nil {
		return false, fmt.Errorf("%w: %s", pbr.ErrFallbackToCPU, k)
	}
	return a.bottomUp, nil
}

// run uploads one surface, dispatches the kernel and reads the result back.
// The device is held for the whole submission.
func (a *KernelAccelerator) run(k pbr.Kernel, upload []byte, width, height int, bottomUp bool, params pbr.KernelParams) ([]float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prog := a.programs[k]
	if !a.gpuReady || prog == nil {
		return nil, fmt.Errorf("%w: %s released during dispatch", pbr.ErrReadbackFailed, k)
	}

	w, h := uint32(width), uint32(height) //nolint:gosec // dimensions always fit uint32
	size := uint64(len(upload))

	bufs, err := a.createBuffers(size)
	if err != nil {
		a.destroyBuffers(bufs)
		return nil, fmt.Errorf("%w: %w", pbr.ErrReadbackFailed, err)
	}
	defer a.destroyBuffers(bufs)

	a.queue.WriteBuffer(bufs.params, 0, encodeParams(w, h, bottomUp, params))
	a.queue.WriteBuffer(bufs.src, 0, upload)

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "pbr_bind", Layout: a.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: bufs.params.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: bufs.src.NativeHandle(), Offset: 0, Size: size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: bufs.dst.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bind group: %w", pbr.ErrReadbackFailed, err)
	}
	defer a.device.DestroyBindGroup(bg)

	gx, gy := workgroups(w, h)
	slogger().Debug("gpu-pbr: dispatch", "kernel", k, "workgroups_x", gx, "workgroups_y", gy, "bytes", size)

	if err := a.submit(prog, bg, bufs, gx, gy, size); err != nil {
		return nil, fmt.Errorf("%w: %w", pbr.ErrReadbackFailed, err)
	}

	readback := make([]byte, size)
	if err := a.queue.ReadBuffer(bufs.staging, 0, readback); err != nil {
		return nil, fmt.Errorf("%w: %w", pbr.ErrReadbackFailed, err)
	}
	return unpackSurface(readback, width, height, bottomUp), nil
}

type buffers struct {
	params, src, dst, staging hal.Buffer
}

func (a *KernelAccelerator) createBuffers(size uint64) (buffers, error) {
	var b buffers
	var err error
	if b.params, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pbr_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	}); err != nil {
		return b, fmt.Errorf("create params buffer: %w", err)
	}
	if b.src, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pbr_src", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	}); err != nil {
		return b, fmt.Errorf("create source buffer: %w", err)
	}
	if b.dst, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pbr_dst", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	}); err != nil {
		return b, fmt.Errorf("create destination buffer: %w", err)
	}
	if b.staging, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pbr_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}); err != nil {
		return b, fmt.Errorf("create staging buffer: %w", err)
	}
	return b, nil
}

func (a *KernelAccelerator) destroyBuffers(b buffers) {
	for _, buf := range []hal.Buffer{b.params, b.src, b.dst, b.staging} {
		if buf != nil {
			a.device.DestroyBuffer(buf)
		}
	}
}

// submit encodes one compute pass plus the staging copy and waits for it.
func (a *KernelAccelerator) submit(prog *program, bg hal.BindGroup, bufs buffers, gx, gy uint32, size uint64) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "pbr_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("pbr_kernel"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "pbr_pass"})
	pass.SetPipeline(prog.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(gx, gy, 1)
	pass.End()

	encoder.CopyBufferToBuffer(bufs.dst, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

func (a *KernelAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", pbr.ErrCapabilityUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", pbr.ErrCapabilityUnavailable, err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("%w: no GPU adapters found", pbr.ErrCapabilityUnavailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("%w: open device: %w", pbr.ErrCapabilityUnavailable, err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipelines(); err != nil {
		return err
	}
	a.gpuReady = true
	slogger().Info("gpu-pbr: GPU accelerator initialized", "adapter", selected.Info.Name,
		"kernels", len(a.programs), "failed", len(a.failed))
	return nil
}

// createPipelines builds the shared layouts and one pipeline per kernel.
// It fails only when no kernel at all could be built.
func (a *KernelAccelerator) createPipelines() error {
	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "pbr_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create bind group layout: %w", pbr.ErrKernelInitializationFailed, err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "pbr_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("%w: create pipeline layout: %w", pbr.ErrKernelInitializationFailed, err)
	}
	a.pipeLayout = pipeLayout

	a.programs = make(map[pbr.Kernel]*program)
	a.failed = make(map[pbr.Kernel]error)
	for _, k := range pbr.AllKernels() {
		p, err := a.createProgram(k)
		if err != nil {
			slogger().Warn("gpu-pbr: kernel unavailable, using CPU", "kernel", k, "err", err)
			a.failed[k] = err
			continue
		}
		a.programs[k] = p
	}
	if len(a.programs) == 0 {
		return fmt.Errorf("%w: no kernel could be built", pbr.ErrKernelInitializationFailed)
	}
	return nil
}

func (a *KernelAccelerator) createProgram(k pbr.Kernel) (*program, error) {
	spirv, err := CompileKernel(k)
	if err != nil {
		return nil, err
	}
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pbr_" + k.String(),
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module %s: %w", pbr.ErrKernelInitializationFailed, k, err)
	}
	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "pbr_" + k.String(), Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		a.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("%w: create pipeline %s: %w", pbr.ErrKernelInitializationFailed, k, err)
	}
	return &program{module: module, pipeline: pipeline}, nil
}

func (a *KernelAccelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	for _, p := range a.programs {
		a.device.DestroyComputePipeline(p.pipeline)
		a.device.DestroyShaderModule(p.module)
	}
	a.programs = nil
	a.failed = nil
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
}

// releaseDevice drops the device, destroying it only if it is ours.
func (a *KernelAccelerator) releaseDevice() {
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}
