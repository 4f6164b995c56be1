package grib

// Accessor is one named, typed field bound to a byte range of a message.
//
// Concrete classes embed Base, which supplies the generic behaviour, and
// override whatever their encoding needs. Unpack methods write into a caller
// buffer and return the number of elements written; when the buffer is too
// short they write nothing and return a codes.SizeError carrying the exact
// size required.
type Accessor interface {
	Core() *Base
	ClassName() string

	Init(length int64, args Arguments) error
	PostInit() error
	Destroy()

	NativeType() NativeType
	ValueCount() (int, error)
	StringLength() int

	UnpackLong(dst []int64) (int, error)
	UnpackDouble(dst []float64) (int, error)
	UnpackString(dst []byte) (int, error)
	UnpackBytes(dst []byte) (int, error)

	PackLong(v []int64) error
	PackDouble(v []float64) error
	PackString(s string) error
	PackBytes(b []byte) error
	PackExpression(e Expression) error
	PackMissing() error
	IsMissing() bool

	ByteCount() uint64
	ByteOffset() uint64
	NextOffset() uint64
	PreferredSize(fromHandle bool) uint64
	Resize(size uint64) error
	UpdateSize(size uint64)

	Compare(other Accessor) error
	Dump(d Dumper)
	Clone(s *Section) (Accessor, error)
}

// Dumper receives accessors one by one while a section tree is walked.
type Dumper interface {
	DumpLong(a Accessor, comment string)
	DumpDouble(a Accessor, comment string)
	DumpString(a Accessor, comment string)
	DumpBytes(a Accessor, comment string)
	DumpValues(a Accessor)
	DumpLabel(a Accessor, comment string)
	DumpSection(a Accessor, s *Section)
}

// Invalidator is implemented by accessors that memoise a computed value.
// Invalidate drops the memo; the next read recomputes it.
type Invalidator interface {
	Invalidate()
}
