package types

const (
	// MinOptions is the minimum number of options a prediction can hold.
	MinOptions = 2
	// MaxOptions is the maximum number of options a prediction can hold.
	MaxOptions = 4
	// MaxTallyValue bounds the discrete log search when revealing a
	// counter. It is the maximum number of votes a single option can
	// accumulate before decryption becomes unable to recover it.
	MaxTallyValue = 1 << 20
)
