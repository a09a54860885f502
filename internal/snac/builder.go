package snac

import (
	"fmt"
	"sort"
	"strings"

	"github.com/snac-ml/snacx/internal/onnx"
	"github.com/snac-ml/snacx/internal/tensor"
)

// BuildOptions configures decoder graph construction.
type BuildOptions struct {
	// GraphName is the ONNX graph name. Defaults to "snac_decoder".
	GraphName string

	// ProducerVersion is recorded in the model header.
	ProducerVersion string

	// Metadata is merged into the model's metadata_props on top of the
	// entries derived from the config.
	Metadata map[string]string

	// OpsetVersion overrides the stamped opset. Zero keeps the default.
	OpsetVersion int64

	// DisableNoise drops the noise-injection branches so the decoder is
	// deterministic. Checkpoint layer numbering is unchanged; the noise
	// block weights are simply not emitted.
	DisableNoise bool
}

// ONNX header constants for exported models.
const (
	irVersion    = 8
	opsetVersion = 18
	producerName = "snacx"
)

// BuildDecoderGraph assembles the ONNX decoder graph for a SNAC model:
// per-level code embedding and upsampling, the convolutional decoder
// stack, and the final tanh. stateDict must already have weight
// normalization folded (see the weights package).
//
// Inputs are codes_0..codes_{L-1} of type int32 with dynamic batch and
// per-level time axes; the output is float32 audio [batch, 1, time].
func BuildDecoderGraph(cfg *Config, stateDict map[string]*tensor.RawTensor, opts BuildOptions) (*onnx.ModelProto, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &graphBuilder{
		cfg:     cfg,
		weights: stateDict,
		noNoise: opts.DisableNoise,
	}

	out, err := b.build()
	if err != nil {
		return nil, err
	}

	graphName := opts.GraphName
	if graphName == "" {
		graphName = "snac_decoder"
	}

	opset := opts.OpsetVersion
	if opset == 0 {
		opset = opsetVersion
	}

	model := &onnx.ModelProto{
		IRVersion:       irVersion,
		ProducerName:    producerName,
		ProducerVersion: opts.ProducerVersion,
		OpsetImport:     []onnx.OperatorSetID{{Domain: "", Version: opset}},
		Graph: &onnx.GraphProto{
			Name:         graphName,
			Nodes:        b.nodes,
			Initializers: b.initializers,
			Inputs:       b.inputs,
			Outputs: []onnx.ValueInfoProto{
				audioOutput(out),
			},
		},
	}

	strides := make([]string, len(cfg.VQStrides))
	for i, s := range cfg.VQStrides {
		strides[i] = fmt.Sprintf("%d", s)
	}
	meta := map[string]string{
		"model_type":    "snac",
		"sampling_rate": fmt.Sprintf("%d", cfg.SamplingRate),
		"hop_length":    fmt.Sprintf("%d", cfg.HopLength()),
		"levels":        fmt.Sprintf("%d", cfg.NumLevels()),
		"vq_strides":    strings.Join(strides, ","),
		"codebook_size": fmt.Sprintf("%d", cfg.CodebookSize),
	}
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	model.MetadataProps = metadataEntries(meta)

	return model, nil
}

// graphBuilder accumulates nodes and initializers while walking the
// decoder architecture.
type graphBuilder struct {
	cfg     *Config
	weights map[string]*tensor.RawTensor
	noNoise bool

	nodes        []onnx.NodeProto
	initializers []onnx.TensorProto
	inputs       []onnx.ValueInfoProto

	constCache map[string]string
}

// build emits the whole graph and returns the name of the audio tensor.
func (b *graphBuilder) build() (string, error) {
	z, err := b.buildQuantizerDecode()
	if err != nil {
		return "", err
	}
	return b.buildDecoderStack(z)
}

// buildQuantizerDecode emits embedding, projection, and upsampling for
// each code level and sums the results into the latent tensor.
func (b *graphBuilder) buildQuantizerDecode() (string, error) {
	latentDim := b.cfg.LatentDim()

	var sum string
	for level := 0; level < b.cfg.NumLevels(); level++ {
		prefix := fmt.Sprintf("quantizer.%d", level)
		input := fmt.Sprintf("codes_%d", level)
		b.inputs = append(b.inputs, codesInput(input, level))

		codebookKey := fmt.Sprintf("quantizer.quantizers.%d.codebook.weight", level)
		codebook, err := b.weight(codebookKey, tensor.Shape{b.cfg.CodebookSize, b.cfg.CodebookDim})
		if err != nil {
			return "", err
		}
		b.addInitializer(codebookKey, codebook)

		// codes [B, T] index rows of the codebook: Gather gives
		// [B, T, codebook_dim], transposed into channel-major layout.
		embedded := prefix + ".embed"
		b.addNode("Gather", prefix+".gather", []string{codebookKey, input}, []string{embedded},
			intAttr("axis", 0))

		transposed := prefix + ".embed_t"
		b.addNode("Transpose", prefix+".transpose", []string{embedded}, []string{transposed},
			intsAttr("perm", []int64{0, 2, 1}))

		projected, err := b.conv(prefix+".out_proj", transposed,
			fmt.Sprintf("quantizer.quantizers.%d.out_proj.weight", level),
			fmt.Sprintf("quantizer.quantizers.%d.out_proj.bias", level),
			tensor.Shape{latentDim, b.cfg.CodebookDim, 1},
			convParams{kernel: 1})
		if err != nil {
			return "", err
		}

		upsampled, err := b.repeatInterleave(prefix, projected, b.cfg.VQStrides[level])
		if err != nil {
			return "", err
		}

		if sum == "" {
			sum = upsampled
			continue
		}
		next := fmt.Sprintf("quantizer.sum_%d", level)
		b.addNode("Add", next, []string{sum, upsampled}, []string{next})
		sum = next
	}

	return sum, nil
}

// repeatInterleave stretches [B, C, T] to [B, C, T*s] by repeating each
// time step s times: unsqueeze a trailing axis, tile it, and flatten.
func (b *graphBuilder) repeatInterleave(prefix, input string, s int) (string, error) {
	if s == 1 {
		return input, nil
	}

	axes, err := b.constInt64s("unsqueeze_last_axis", []int64{3})
	if err != nil {
		return "", err
	}
	repeats, err := b.constInt64s(fmt.Sprintf("tile_repeat_%d", s), []int64{1, 1, 1, int64(s)})
	if err != nil {
		return "", err
	}
	shape, err := b.constInt64s("merge_time_shape", []int64{0, 0, -1})
	if err != nil {
		return "", err
	}

	unsqueezed := prefix + ".up_unsqueeze"
	b.addNode("Unsqueeze", unsqueezed, []string{input, axes}, []string{unsqueezed})

	tiled := prefix + ".up_tile"
	b.addNode("Tile", tiled, []string{unsqueezed, repeats}, []string{tiled})

	reshaped := prefix + ".up"
	b.addNode("Reshape", reshaped, []string{tiled, shape}, []string{reshaped})
	return reshaped, nil
}

// buildDecoderStack emits the convolutional decoder over the latent
// tensor and returns the audio tensor name.
func (b *graphBuilder) buildDecoderStack(z string) (string, error) {
	latentDim := b.cfg.LatentDim()
	layer := 0

	x := z
	var err error
	if b.cfg.Depthwise {
		// Depthwise stem: per-channel k7 conv followed by a pointwise
		// projection to the decoder width.
		x, err = b.conv(layerName(layer), x,
			layerKey(layer, "weight"), layerKey(layer, "bias"),
			tensor.Shape{latentDim, 1, 7},
			convParams{kernel: 7, padLeft: 3, padRight: 3, groups: latentDim})
		if err != nil {
			return "", err
		}
		layer++

		x, err = b.conv(layerName(layer), x,
			layerKey(layer, "weight"), layerKey(layer, "bias"),
			tensor.Shape{b.cfg.DecoderDim, latentDim, 1},
			convParams{kernel: 1})
		if err != nil {
			return "", err
		}
		layer++
	} else {
		x, err = b.conv(layerName(layer), x,
			layerKey(layer, "weight"), layerKey(layer, "bias"),
			tensor.Shape{b.cfg.DecoderDim, latentDim, 7},
			convParams{kernel: 7, padLeft: 3, padRight: 3})
		if err != nil {
			return "", err
		}
		layer++
	}

	channels := b.cfg.DecoderDim
	for _, rate := range b.cfg.DecoderRates {
		x, err = b.decoderBlock(layer, x, channels, channels/2, rate)
		if err != nil {
			return "", err
		}
		channels /= 2
		layer++
	}

	x, err = b.snake(fmt.Sprintf("decoder.model.%d", layer), layerKey(layer, "alpha"), x, channels)
	if err != nil {
		return "", err
	}
	layer++

	x, err = b.conv(layerName(layer), x,
		layerKey(layer, "weight"), layerKey(layer, "bias"),
		tensor.Shape{1, channels, 7},
		convParams{kernel: 7, padLeft: 3, padRight: 3})
	if err != nil {
		return "", err
	}

	b.addNode("Tanh", "decoder.tanh", []string{x}, []string{"audio"})
	return "audio", nil
}

// decoderBlock emits one upsampling block: snake activation, transposed
// convolution, optional noise injection, and three dilated residual
// units.
func (b *graphBuilder) decoderBlock(layer int, input string, cIn, cOut, rate int) (string, error) {
	prefix := fmt.Sprintf("decoder.model.%d", layer)
	sub := 0

	x, err := b.snake(fmt.Sprintf("%s.block.%d", prefix, sub), blockKey(layer, sub, "alpha"), input, cIn)
	if err != nil {
		return "", err
	}
	sub++

	// Transposed conv: kernel 2*rate, pad ceil(rate/2) per side, output
	// padding fixes up odd rates.
	kernel := 2 * rate
	pad := (rate + 1) / 2
	x, err = b.convTranspose(fmt.Sprintf("%s.block.%d", prefix, sub), x,
		blockKey(layer, sub, "weight"), blockKey(layer, sub, "bias"),
		tensor.Shape{cIn, cOut, kernel},
		convParams{kernel: kernel, stride: rate, padLeft: pad, padRight: pad, outputPadding: rate % 2})
	if err != nil {
		return "", err
	}
	sub++

	if b.cfg.Noise {
		// A disabled noise branch still occupies its block slot so the
		// residual unit keys line up with the checkpoint.
		if !b.noNoise {
			x, err = b.noiseBlock(fmt.Sprintf("%s.block.%d", prefix, sub), layer, sub, x, cOut)
			if err != nil {
				return "", err
			}
		}
		sub++
	}

	for _, dilation := range []int{1, 3, 9} {
		x, err = b.residualUnit(fmt.Sprintf("%s.block.%d", prefix, sub), layer, sub, x, cOut, dilation)
		if err != nil {
			return "", err
		}
		sub++
	}

	return x, nil
}

// residualUnit emits snake, dilated k7 conv, snake, 1x1 conv, and the
// residual add.
func (b *graphBuilder) residualUnit(prefix string, layer, sub int, input string, channels, dilation int) (string, error) {
	key := func(j int, name string) string {
		return fmt.Sprintf("decoder.model.%d.block.%d.block.%d.%s", layer, sub, j, name)
	}

	x, err := b.snake(prefix+".block.0", key(0, "alpha"), input, channels)
	if err != nil {
		return "", err
	}

	groups := 1
	wShape := tensor.Shape{channels, channels, 7}
	if b.cfg.Depthwise {
		groups = channels
		wShape = tensor.Shape{channels, 1, 7}
	}
	x, err = b.conv(prefix+".block.1", x, key(1, "weight"), key(1, "bias"), wShape,
		convParams{kernel: 7, padLeft: 3 * dilation, padRight: 3 * dilation, dilation: dilation, groups: groups})
	if err != nil {
		return "", err
	}

	x, err = b.snake(prefix+".block.2", key(2, "alpha"), x, channels)
	if err != nil {
		return "", err
	}

	x, err = b.conv(prefix+".block.3", x, key(3, "weight"), key(3, "bias"),
		tensor.Shape{channels, channels, 1},
		convParams{kernel: 1})
	if err != nil {
		return "", err
	}

	out := prefix + ".residual"
	b.addNode("Add", out, []string{input, x}, []string{out})
	return out, nil
}

// noiseBlock emits x + randn([B, 1, T]) * linear(x). The noise is shaped
// by slicing the input down to one channel and sampling like it, which
// keeps the batch and time axes dynamic.
func (b *graphBuilder) noiseBlock(prefix string, layer, sub int, input string, channels int) (string, error) {
	weightKey := fmt.Sprintf("decoder.model.%d.block.%d.linear.weight", layer, sub)
	h, err := b.conv(prefix+".linear", input, weightKey, "",
		tensor.Shape{channels, channels, 1},
		convParams{kernel: 1})
	if err != nil {
		return "", err
	}

	starts, err := b.constInt64s("slice_start_0", []int64{0})
	if err != nil {
		return "", err
	}
	ends, err := b.constInt64s("slice_end_1", []int64{1})
	if err != nil {
		return "", err
	}
	axes, err := b.constInt64s("slice_axis_1", []int64{1})
	if err != nil {
		return "", err
	}

	channelSlice := prefix + ".one_channel"
	b.addNode("Slice", channelSlice, []string{input, starts, ends, axes}, []string{channelSlice})

	noise := prefix + ".noise"
	b.addNode("RandomNormalLike", noise, []string{channelSlice}, []string{noise})

	scaled := prefix + ".scaled"
	b.addNode("Mul", scaled, []string{noise, h}, []string{scaled})

	out := prefix + ".out"
	b.addNode("Add", out, []string{input, scaled}, []string{out})
	return out, nil
}

// snake emits the periodic activation x + (1/(alpha+1e-9)) * sin(alpha*x)^2.
// The reciprocal is precomputed into an initializer so the graph carries a
// Mul instead of a Div.
func (b *graphBuilder) snake(prefix, alphaKey, input string, channels int) (string, error) {
	alpha, err := b.weight(alphaKey, tensor.Shape{1, channels, 1})
	if err != nil {
		return "", err
	}
	b.addInitializer(alphaKey, alpha)

	recip, err := tensor.NewRaw(tensor.Shape{1, channels, 1}, tensor.Float32)
	if err != nil {
		return "", err
	}
	alphaData := alpha.AsFloat32()
	recipData := recip.AsFloat32()
	for i, a := range alphaData {
		recipData[i] = float32(1 / (float64(a) + 1e-9))
	}
	recipKey := alphaKey + "_recip"
	b.addInitializer(recipKey, recip)

	ax := prefix + ".ax"
	b.addNode("Mul", ax, []string{input, alphaKey}, []string{ax})

	sinAx := prefix + ".sin"
	b.addNode("Sin", sinAx, []string{ax}, []string{sinAx})

	sin2 := prefix + ".sin2"
	b.addNode("Mul", sin2, []string{sinAx, sinAx}, []string{sin2})

	scaled := prefix + ".scaled"
	b.addNode("Mul", scaled, []string{sin2, recipKey}, []string{scaled})

	out := prefix + ".snake"
	b.addNode("Add", out, []string{input, scaled}, []string{out})
	return out, nil
}

// convParams carries the attributes of a conv or transposed conv node.
type convParams struct {
	kernel        int
	stride        int
	padLeft       int
	padRight      int
	dilation      int
	groups        int
	outputPadding int
}

func (p convParams) normalized() convParams {
	if p.stride == 0 {
		p.stride = 1
	}
	if p.dilation == 0 {
		p.dilation = 1
	}
	if p.groups == 0 {
		p.groups = 1
	}
	return p
}

// conv emits a Conv node backed by checkpoint weights.
func (b *graphBuilder) conv(prefix, input, weightKey, biasKey string, wShape tensor.Shape, p convParams) (string, error) {
	return b.convNode("Conv", prefix, input, weightKey, biasKey, wShape, p)
}

// convTranspose emits a ConvTranspose node backed by checkpoint weights.
func (b *graphBuilder) convTranspose(prefix, input, weightKey, biasKey string, wShape tensor.Shape, p convParams) (string, error) {
	return b.convNode("ConvTranspose", prefix, input, weightKey, biasKey, wShape, p)
}

func (b *graphBuilder) convNode(opType, prefix, input, weightKey, biasKey string, wShape tensor.Shape, p convParams) (string, error) {
	p = p.normalized()

	weight, err := b.weight(weightKey, wShape)
	if err != nil {
		return "", err
	}
	b.addInitializer(weightKey, weight)

	nodeInputs := []string{input, weightKey}
	if biasKey != "" {
		biasLen := wShape[0]
		if opType == "ConvTranspose" {
			biasLen = wShape[1] * p.groups
		}
		bias, err := b.weight(biasKey, tensor.Shape{biasLen})
		if err != nil {
			return "", err
		}
		b.addInitializer(biasKey, bias)
		nodeInputs = append(nodeInputs, biasKey)
	}

	attrs := []onnx.AttributeProto{
		intsAttr("kernel_shape", []int64{int64(p.kernel)}),
		intsAttr("strides", []int64{int64(p.stride)}),
		intsAttr("pads", []int64{int64(p.padLeft), int64(p.padRight)}),
		intsAttr("dilations", []int64{int64(p.dilation)}),
		intAttr("group", int64(p.groups)),
	}
	if opType == "ConvTranspose" && p.outputPadding > 0 {
		attrs = append(attrs, intsAttr("output_padding", []int64{int64(p.outputPadding)}))
	}

	out := prefix + ".out"
	b.addNode(opType, prefix, nodeInputs, []string{out}, attrs...)
	return out, nil
}

// weight fetches a checkpoint tensor, checking dtype and shape.
func (b *graphBuilder) weight(key string, want tensor.Shape) (*tensor.RawTensor, error) {
	t, ok := b.weights[key]
	if !ok {
		return nil, fmt.Errorf("checkpoint is missing %s", key)
	}
	if t.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%s has dtype %v, want float32", key, t.DType())
	}
	if !t.Shape().Equal(want) {
		return nil, fmt.Errorf("%s has shape %v, want %v", key, t.Shape(), want)
	}
	return t, nil
}

// addInitializer records a float32 tensor as a graph initializer.
func (b *graphBuilder) addInitializer(name string, t *tensor.RawTensor) {
	dims := make([]int64, len(t.Shape()))
	for i, d := range t.Shape() {
		dims[i] = int64(d)
	}
	b.initializers = append(b.initializers, onnx.TensorProto{
		Name:     name,
		DataType: onnx.TensorProtoFloat,
		Dims:     dims,
		RawData:  append([]byte(nil), t.Data()...),
	})
}

// constInt64s records a small int64 constant initializer, deduplicated by
// name so shared shape vectors appear once.
func (b *graphBuilder) constInt64s(name string, values []int64) (string, error) {
	if b.constCache == nil {
		b.constCache = make(map[string]string)
	}
	if existing, ok := b.constCache[name]; ok {
		return existing, nil
	}

	data := make([]byte, 0, len(values)*8)
	for _, v := range values {
		data = appendInt64LE(data, v)
	}
	b.initializers = append(b.initializers, onnx.TensorProto{
		Name:     name,
		DataType: onnx.TensorProtoInt64,
		Dims:     []int64{int64(len(values))},
		RawData:  data,
	})
	b.constCache[name] = name
	return name, nil
}

func appendInt64LE(data []byte, v int64) []byte {
	u := uint64(v) //nolint:gosec // G115: two's complement round-trip
	for i := 0; i < 8; i++ {
		data = append(data, byte(u>>(8*i)))
	}
	return data
}

// addNode appends a graph node.
func (b *graphBuilder) addNode(opType, name string, inputs, outputs []string, attrs ...onnx.AttributeProto) {
	b.nodes = append(b.nodes, onnx.NodeProto{
		Name:       name,
		OpType:     opType,
		Inputs:     inputs,
		Outputs:    outputs,
		Attributes: attrs,
	})
}

// layerName returns the node name prefix for a top-level decoder layer.
func layerName(layer int) string {
	return fmt.Sprintf("decoder.model.%d", layer)
}

// layerKey returns the checkpoint key of a top-level decoder parameter.
func layerKey(layer int, name string) string {
	return fmt.Sprintf("decoder.model.%d.%s", layer, name)
}

// blockKey returns the checkpoint key of a decoder block parameter.
func blockKey(layer, sub int, name string) string {
	return fmt.Sprintf("decoder.model.%d.block.%d.%s", layer, sub, name)
}

// codesInput describes one code-level graph input with dynamic batch and
// time axes.
func codesInput(name string, level int) onnx.ValueInfoProto {
	return onnx.ValueInfoProto{
		Name: name,
		Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
			ElemType: onnx.TensorProtoInt32,
			Shape: &onnx.TensorShapeProto{Dims: []onnx.DimensionProto{
				{DimParam: "batch"},
				{DimParam: fmt.Sprintf("time_%d", level)},
			}},
		}},
	}
}

// audioOutput describes the audio graph output.
func audioOutput(name string) onnx.ValueInfoProto {
	return onnx.ValueInfoProto{
		Name: name,
		Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
			ElemType: onnx.TensorProtoFloat,
			Shape: &onnx.TensorShapeProto{Dims: []onnx.DimensionProto{
				{DimParam: "batch"},
				{DimValue: 1},
				{DimParam: "time"},
			}},
		}},
	}
}

// metadataEntries converts a metadata map to sorted proto entries.
func metadataEntries(meta map[string]string) []onnx.StringStringEntry {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]onnx.StringStringEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, onnx.StringStringEntry{Key: k, Value: meta[k]})
	}
	return entries
}

// ExpectedAudioLength returns the number of samples the decoder produces
// for a given finest-level code count.
func ExpectedAudioLength(cfg *Config, finestSteps int) int {
	return finestSteps * cfg.HopLength()
}

// attribute constructors

func intAttr(name string, v int64) onnx.AttributeProto {
	return onnx.AttributeProto{Name: name, Type: onnx.AttributeProtoInt, I: v}
}

func intsAttr(name string, v []int64) onnx.AttributeProto {
	return onnx.AttributeProto{Name: name, Type: onnx.AttributeProtoInts, Ints: v}
}
