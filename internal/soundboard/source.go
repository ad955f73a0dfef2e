package soundboard

// UploadSource is where the payload of a new clip comes from.
// It is either an Attachment or an ExistingClip.
type UploadSource interface {
	isUploadSource()
}

// Attachment is a freshly uploaded file.
type Attachment struct {
	Data     []byte
	Filename string
}

// ExistingClip points a new clip at a payload that is already stored.
type ExistingClip struct {
	Digest   string
	Filename string
}

func (Attachment) isUploadSource()   {}
func (ExistingClip) isUploadSource() {}
