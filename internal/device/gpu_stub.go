package device

// GPU runtimes are not linked into this build. The constructors exist so the
// kind can be named on the command line and rejected with a clear error.

func NewCudaBackend() (Backend, error) {
	return nil, unsupported(CUDA)
}

func NewHipBackend() (Backend, error) {
	return nil, unsupported(HIP)
}

func NewMetalBackend() (Backend, error) {
	return nil, unsupported(Metal)
}

func unsupported(k Kind) error {
	return &UnsupportedError{Kind: k}
}

// UnsupportedError reports which backend kind was unavailable.
type UnsupportedError struct {
	Kind Kind
}

func (e *UnsupportedError) Error() string {
	return ErrUnsupported.Error() + ": " + e.Kind.String()
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}
