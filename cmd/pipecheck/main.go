// Command pipecheck compiles and links WGSL shader files without a window
// and can keep watching them, rebuilding the pipeline on every save.
//
// Usage:
//
//	pipecheck [-watch] [-interval 500ms] [-v] mesh.vert.wgsl mesh.frag.wgsl
//
// The stage of each file comes from its extension (.vert, .frag, .comp,
// optionally followed by .wgsl). The pipeline runs on the noop HAL
// backend, so only compilation and linking are checked.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpures"
	"github.com/gogpu/gpures/device/halgpu"
	"github.com/gogpu/gpures/shaders"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

var errBadInterval = errors.New("pipecheck: -interval must be positive")

func run(ctx context.Context, args []string, out io.Writer) error {
	fset := flag.NewFlagSet("pipecheck", flag.ContinueOnError)
	var (
		watch    = fset.Bool("watch", false, "rebuild the pipeline when a file changes")
		interval = fset.Duration("interval", 500*time.Millisecond, "poll interval for -watch")
		verbose  = fset.Bool("v", false, "log resource lifecycle to stderr")
	)
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		return errors.New("pipecheck: no shader files given")
	}
	if *interval <= 0 {
		return errBadInterval
	}
	if *verbose {
		gpures.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	dev, release, err := openNoop()
	if err != nil {
		return err
	}
	defer release()

	res := gpures.New(dev, gpures.WithLabelPrefix("pipecheck"))
	defer res.Close()

	id, err := res.Shaders.CreatePipelineFromFiles(fset.Args()...)
	if err != nil {
		return err
	}
	kind, _ := res.Shaders.Kind(id)
	label, _ := res.Shaders.Label(id)
	fmt.Fprintf(out, "ok %s pipeline %q\n", kind, label)
	for _, d := range res.Shaders.Shaders(id) {
		fmt.Fprintf(out, "  %s\n", d)
	}

	if !*watch {
		return nil
	}
	w := shaders.NewWatcher(res.Shaders)
	err = w.Run(ctx, *interval, func(results []shaders.ReloadResult) {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "reload failed, keeping iteration %d: %v\n", r.Iteration, r.Err)
				continue
			}
			fmt.Fprintf(out, "reloaded %q\n", r.Label)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openNoop opens a headless HAL device. release destroys everything it
// created.
func openNoop() (*halgpu.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("pipecheck: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("pipecheck: no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("pipecheck: open device: %w", err)
	}

	dev := halgpu.New(open.Device, open.Queue, halgpu.WithLabel("pipecheck"))
	release := func() {
		dev.Close()
		open.Device.Destroy()
		instance.Destroy()
	}
	return dev, release, nil
}
