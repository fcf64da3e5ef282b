package types

// Envelope is the wire unit a transport carries between two parties.
//
// Header is the 48-byte encoded ratchet header. AssociatedData is the
// application context bound into the AEAD tag; it travels in the clear.
type Envelope struct {
	ID             string   `json:"id" cbor:"1,keyasint"`
	From           Username `json:"from" cbor:"2,keyasint"`
	To             Username `json:"to" cbor:"3,keyasint"`
	Header         []byte   `json:"header" cbor:"4,keyasint"`
	Ciphertext     []byte   `json:"ciphertext" cbor:"5,keyasint"`
	AssociatedData []byte   `json:"associated_data,omitempty" cbor:"6,keyasint,omitempty"`
	Timestamp      int64    `json:"timestamp" cbor:"7,keyasint"`
}

// DecryptedMessage is an opened envelope.
type DecryptedMessage struct {
	ID        string   `json:"id"`
	From      Username `json:"from"`
	To        Username `json:"to"`
	Plaintext []byte   `json:"plaintext"`
	Timestamp int64    `json:"timestamp"`
}
