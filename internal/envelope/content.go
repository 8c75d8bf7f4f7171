package envelope

import "fmt"

// ContentType tags the plaintext variant carried inside an envelope.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentFile  ContentType = "file"
	ContentImage ContentType = "image"
)

// FileMeta travels alongside the envelope in plaintext. Filename, content type
// and size are NOT confidentiality-protected; only the file bytes are.
type FileMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Payload is the tagged union funnelling text, file and profile-image content
// through the one envelope contract.
type Payload struct {
	Type     ContentType `json:"type"`
	Envelope *Envelope   `json:"envelope"`
	File     *FileMeta   `json:"file,omitempty"`
}

// SealText encrypts a text message.
func SealText(text string, key []byte, contextID string) (*Payload, error) {
	env, err := Seal([]byte(text), key, contextID)
	if err != nil {
		return nil, err
	}
	return &Payload{Type: ContentText, Envelope: env}, nil
}

// OpenText decrypts a text payload.
func OpenText(p *Payload, key []byte, contextID string) (string, error) {
	if p == nil || p.Type != ContentText {
		return "", ErrBadEnvelope
	}
	plaintext, err := Open(p.Envelope, key, contextID)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// SealFile encrypts raw file bytes, keeping the metadata as a plaintext
// sidecar.
func SealFile(data []byte, meta FileMeta, key []byte, contextID string) (*Payload, error) {
	return sealBinary(ContentFile, data, meta, key, contextID)
}

// SealImage encrypts a profile image. Same contract as SealFile under a
// distinct tag so receivers can route it without decrypting.
func SealImage(data []byte, meta FileMeta, key []byte, contextID string) (*Payload, error) {
	return sealBinary(ContentImage, data, meta, key, contextID)
}

// OpenBinary decrypts a file or image payload and returns the bytes with the
// sidecar metadata.
func OpenBinary(p *Payload, key []byte, contextID string) ([]byte, *FileMeta, error) {
	if p == nil || (p.Type != ContentFile && p.Type != ContentImage) {
		return nil, nil, ErrBadEnvelope
	}
	data, err := Open(p.Envelope, key, contextID)
	if err != nil {
		return nil, nil, err
	}
	return data, p.File, nil
}

func sealBinary(typ ContentType, data []byte, meta FileMeta, key []byte, contextID string) (*Payload, error) {
	if meta.Size != 0 && meta.Size != int64(len(data)) {
		return nil, fmt.Errorf("envelope: metadata size %d does not match payload %d", meta.Size, len(data))
	}
	meta.Size = int64(len(data))
	env, err := Seal(data, key, contextID)
	if err != nil {
		return nil, err
	}
	m := meta
	return &Payload{Type: typ, Envelope: env, File: &m}, nil
}
