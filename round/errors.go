package round

import "errors"

// Sentinel protocol-violation errors (spec §7). dispatch.go treats every
// error returned by a handler as recoverable: log, pop the just-appended
// log entry, continue. They are plain sentinels (grounded on
// skipchain.ErrorProcessing) rather than a custom error type, since
// dispatch.go never needs to recover structured data from them.
var (
	ErrAlreadyStarted       = errors.New("round: Start called more than once")
	ErrMisordered           = errors.New("round: message received out of phase order")
	ErrDuplicateKey         = errors.New("round: duplicate public key for this sender")
	ErrInvalidKey           = errors.New("round: key failed validity check")
	ErrNotHead              = errors.New("round: data message received by a non-head participant")
	ErrEmptyData             = errors.New("round: received empty data")
	ErrDuplicateData        = errors.New("round: duplicate data submission from this sender")
	ErrConflictingData      = errors.New("round: second, differing data submission from this sender")
	ErrWrongPredecessor     = errors.New("round: shuffle data received from a node other than the predecessor")
	ErrWrongTail            = errors.New("round: encrypted data broadcast received from a node other than the tail")
	ErrDuplicateVote        = errors.New("round: duplicate go/no-go vote from this sender")
	ErrDuplicatePrivateKey  = errors.New("round: duplicate private key from this sender")
	ErrPrivateKeyMismatch   = errors.New("round: revealed private key does not match its announced public key")
	ErrDuplicateBlameData   = errors.New("round: duplicate blame data from this sender")
	ErrBadBlameSignature    = errors.New("round: blame data signature does not verify")
	ErrDuplicateBlameVerify = errors.New("round: duplicate blame verification from this sender")
	ErrShortBlameVector     = errors.New("round: blame verification vectors do not cover every participant")
	ErrBadSignature         = errors.New("round: message signature does not verify")
	ErrShortMessage         = errors.New("round: message shorter than one signature")
	ErrWrongRound           = errors.New("round: message round id does not match this round")
	ErrUnknownTag           = errors.New("round: unknown message tag")
	ErrUnknownSender        = errors.New("round: message from an identity outside the group")
)
