package ocaf

// Document owns a label tree for its whole lifetime
type Document struct {
	Root *Label

	// StorageFormat the name of the format the document is saved with
	StorageFormat string
	Comments      []string

	// Version the document version found in the file, 0 for documents never loaded
	Version int
	// StorageVersion the version to write, 0 for the current one
	StorageVersion int
}

// NewDocument makes an empty document bound to a storage format
func NewDocument(format string) *Document {
	return &Document{
		Root:          NewRoot(),
		StorageFormat: format,
	}
}

// NbLabels counts every label including the root
func (d *Document) NbLabels() int {
	n := 0
	d.Root.Walk(func(*Label) bool {
		n++
		return true
	})
	return n
}

// NbAttributes counts every attribute in the tree
func (d *Document) NbAttributes() int {
	n := 0
	d.Root.Walk(func(l *Label) bool {
		n += l.NbAttributes()
		return true
	})
	return n
}
