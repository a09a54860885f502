package tensor

// ConvOpts carries the hyperparameters of a 1-D convolution. Pads follow the
// ONNX convention of explicit begin/end counts along the spatial axis.
type ConvOpts struct {
	Stride   int
	PadLeft  int
	PadRight int
	Dilation int
	Groups   int

	// OutputPadding applies to transposed convolution only.
	OutputPadding int
}

// Backend defines the compute interface the ONNX executor delegates to for
// arithmetic and convolution. Element-wise unary and shape operations live
// as package-level functions in this package; the Backend split exists for
// the operations where the implementation strategy (vectorized fast paths,
// stride-based broadcasting, parallel kernels) actually matters.
//
// Binary operations panic on incompatible shapes or dtypes: shape agreement
// is validated by the executor before delegation. Convolutions return
// errors because their hyperparameters come straight from untrusted model
// files.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Conv1D computes a grouped, dilated 1-D convolution.
	// input [N, C, L], weight [COut, C/groups, K], optional bias [COut].
	Conv1D(input, weight, bias *RawTensor, opts ConvOpts) (*RawTensor, error)

	// ConvTranspose1D computes a grouped transposed 1-D convolution.
	// input [N, C, L], weight [C, COut/groups, K], optional bias [COut].
	ConvTranspose1D(input, weight, bias *RawTensor, opts ConvOpts) (*RawTensor, error)

	// Name identifies the backend implementation.
	Name() string
}
