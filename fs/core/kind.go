package core

// Kind tags a path handle with the variant it was created as.
type Kind int

const (
	// KindPath is a path of unknown or mixed type.
	KindPath Kind = iota
	// KindFile is a path expected to be a non-directory.
	KindFile
	// KindDirectory is a path expected to be a directory.
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "path"
	}
}
