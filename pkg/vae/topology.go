package vae

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/olekukonko/tablewriter"
)

// LayerInfo describes one dense layer of the model.
type LayerInfo struct {
	// Scope is the absolute context scope of the layer variables.
	Scope string

	InputWidth, OutputWidth int
	Activation              activations.Type
	DropoutRate             float64

	// Head is true for terminal layers: the mean and log-variance projections and the reconstruction.
	Head bool
}

// NumParams returns the number of weights plus biases of the layer.
func (l LayerInfo) NumParams() int {
	return l.InputWidth*l.OutputWidth + l.OutputWidth
}

// Topology is the list of layers of the encoder and decoder built from a Config, in the order
// they are applied.
type Topology struct {
	Config  Config
	Encoder []LayerInfo
	Decoder []LayerInfo
}

// NewTopology computes the topology of the model defined by c. It doesn't validate c.
func NewTopology(c Config) Topology {
	t := Topology{Config: c}
	t.Encoder = pipelineInfo(EncoderScope, EncoderPipeline(c), c.InputDim)
	t.Decoder = pipelineInfo(DecoderScope, DecoderPipeline(c), c.LatentDim())
	return t
}

func pipelineInfo(scope string, p Pipeline, inputWidth int) []LayerInfo {
	infos := make([]LayerInfo, 0, len(p.Layers)+len(p.Heads))
	width := inputWidth
	for _, spec := range p.Layers {
		infos = append(infos, layerInfo(scope, spec, width, false))
		width = spec.Width
	}
	for _, spec := range p.Heads {
		infos = append(infos, layerInfo(scope, spec, width, true))
	}
	return infos
}

func layerInfo(scope string, spec LayerSpec, inputWidth int, head bool) LayerInfo {
	info := LayerInfo{
		Scope:       context.ScopeSeparator + scope + context.ScopeSeparator + spec.Name,
		InputWidth:  inputWidth,
		OutputWidth: spec.Width,
		Activation:  spec.Activation,
		Head:        head,
	}
	if !head {
		info.DropoutRate = spec.DropoutRate
	}
	return info
}

// Layers returns all layers, encoder first.
func (t Topology) Layers() []LayerInfo {
	all := make([]LayerInfo, 0, len(t.Encoder)+len(t.Decoder))
	all = append(all, t.Encoder...)
	return append(all, t.Decoder...)
}

// NumParams is the total number of trainable parameters.
func (t Topology) NumParams() (total int) {
	for _, l := range t.Layers() {
		total += l.NumParams()
	}
	return
}

// DecoderHiddenWidths returns the output widths of the decoder hidden layers, in order.
func (t Topology) DecoderHiddenWidths() []int {
	var widths []int
	for _, l := range t.Decoder {
		if !l.Head {
			widths = append(widths, l.OutputWidth)
		}
	}
	return widths
}

// Render writes a table with one row per layer and the total number of parameters.
func (t Topology) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scope", "Input", "Output", "Activation", "Dropout", "Params"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, l := range t.Layers() {
		dropout := "-"
		if l.DropoutRate > 0 {
			dropout = strconv.FormatFloat(l.DropoutRate, 'g', -1, 64)
		}
		table.Append([]string{
			l.Scope,
			strconv.Itoa(l.InputWidth),
			strconv.Itoa(l.OutputWidth),
			l.Activation.String(),
			dropout,
			humanize.Comma(int64(l.NumParams())),
		})
	}
	table.Render()

	numParams := t.NumParams()
	_, err := fmt.Fprintf(w, "Total parameters: %s (%s as %s)\n",
		humanize.Comma(int64(numParams)), humanize.Bytes(uint64(numParams*t.Config.DType.Size())), t.Config.DType)
	return err
}
