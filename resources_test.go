package gpures

import (
	"strings"
	"testing"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/images"
	"github.com/gogpu/gpures/internal/fakegpu"
	"github.com/gogpu/gpures/shaders"
)

func TestResourcesClose(t *testing.T) {
	dev := fakegpu.New()
	res := New(dev, WithLabelPrefix("demo"), WithImageOptions(images.WithMemoryBudget(1<<20)))

	img, err := res.Images.CreateImage(device.D2(4, 4, 1, 1), device.FormatRGBA8Unorm, 1)
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if _, err := res.Images.CreateViewWhole(img); err != nil {
		t.Fatalf("CreateViewWhole: %v", err)
	}
	pipe, err := res.Shaders.CreatePipeline([]shaders.Desc{
		shaders.FromLiteral("void main() {}", device.StageCompute),
	})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if label, ok := res.Shaders.Label(pipe); !ok || !strings.HasPrefix(label, "demo/") {
		t.Errorf("Label = %q, %v; want demo/ prefix", label, ok)
	}

	res.Close()

	if n := dev.Live(); n != 0 {
		t.Errorf("Live() = %d after Close, want 0", n)
	}
	if imgs, views := res.Images.Len(); imgs != 0 || views != 0 {
		t.Errorf("Images.Len() = %d, %d", imgs, views)
	}
	if n := res.Shaders.Len(); n != 0 {
		t.Errorf("Shaders.Len() = %d", n)
	}

	// managers stay usable after Close
	if _, err := res.Images.CreateImage(device.D1(8, 1), device.FormatR8Unorm, 1); err != nil {
		t.Errorf("CreateImage after Close: %v", err)
	}
}

func TestWithShaderOptions(t *testing.T) {
	dev := fakegpu.New()
	var read []string
	res := New(dev, WithShaderOptions(shaders.WithReadFile(func(path string) ([]byte, error) {
		read = append(read, path)
		return []byte("void main() {}"), nil
	})))
	t.Cleanup(res.Close)

	if _, err := res.Shaders.CreatePipelineFromFiles("a.comp"); err != nil {
		t.Fatalf("CreatePipelineFromFiles: %v", err)
	}
	if len(read) != 1 || read[0] != "a.comp" {
		t.Errorf("read = %v, want [a.comp]", read)
	}
}
