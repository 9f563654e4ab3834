package device

var _ Backend = (*ReferenceBackend)(nil)

// ReferenceBackend runs every index space in order on the calling goroutine.
// Its results are the ones the other backends are checked against.
type ReferenceBackend struct{}

func NewReferenceBackend() *ReferenceBackend {
	return &ReferenceBackend{}
}

func (b *ReferenceBackend) Name() string {
	return "reference"
}

func (b *ReferenceBackend) Kind() Kind {
	return Reference
}

func (b *ReferenceBackend) NumWorkers() int {
	return 1
}

func (b *ReferenceBackend) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	fn(0, n)
}

func (b *ReferenceBackend) Synchronize() {
	// Always synchronous
}

func (b *ReferenceBackend) Close() {}
