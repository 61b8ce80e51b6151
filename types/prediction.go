package types

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Prediction is a single confidential multi-option tally. The option
// labels and the encrypted counters are positionally aligned: counter i
// accumulates the votes for option i. Name, Options, Creator and
// CreatedAt are immutable after creation; Open flips to false exactly
// once and EncryptedCounts are replaced by each vote with the freshly
// derived handles.
type Prediction struct {
	ID              uint64         `json:"id"              cbor:"0,keyasint"`
	Name            string         `json:"name"            cbor:"1,keyasint"`
	Options         []string       `json:"options"         cbor:"2,keyasint"`
	EncryptedCounts []HexBytes     `json:"encryptedCounts" cbor:"3,keyasint"`
	Open            bool           `json:"open"            cbor:"4,keyasint"`
	Creator         common.Address `json:"creator"         cbor:"5,keyasint"`
	CreatedAt       time.Time      `json:"createdAt"       cbor:"6,keyasint"`
}

func (p *Prediction) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
