package provider

import (
	"sync"
	"sync/atomic"

	"github.com/mrz1836/coinfund/internal/output"
)

// Capability says whether a usable wallet provider exists.
type Capability int

// Capability states. Unknown only holds until Detect runs.
const (
	Unknown Capability = iota
	Available
	Unavailable
)

func (c Capability) String() string {
	switch c {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Notices shown when no usable wallet is found.
const (
	NoticeInstallWallet = "No wallet found. Run 'coinfund wallet init' to create a local wallet or set wallet.mode to 'node' with a wallet endpoint."
	NoticeLegacyWallet  = "Please update your wallet. The version you are using is not supported anymore."
	NoticeNotAWallet    = "The configured provider does not expose wallet accounts. Read-only mode."
)

// Detector inspects the environment once and remembers the answer.
type Detector struct {
	lookup   func() any
	notifier output.Notifier

	once     sync.Once
	state    atomic.Int32
	provider Provider
}

// NewDetector creates a detector. lookup returns whatever wallet object the
// environment offers, or nil. A nil notifier discards notices.
func NewDetector(lookup func() any, notifier output.Notifier) *Detector {
	if notifier == nil {
		notifier = output.Discard
	}
	return &Detector{lookup: lookup, notifier: notifier}
}

// Detect returns Available when the environment offers a Provider that
// identifies as a wallet, Unavailable otherwise. The environment is
// inspected on the first call only; later calls return the same answer.
func (d *Detector) Detect() Capability {
	d.once.Do(func() {
		found := Unavailable
		defer func() { d.state.Store(int32(found)) }()

		var candidate any
		if d.lookup != nil {
			candidate = d.lookup()
		}

		p, isProvider := candidate.(Provider)
		switch {
		case candidate == nil:
			d.notifier.Notify(output.LevelInfo, NoticeInstallWallet)
		case !isProvider:
			if _, legacy := candidate.(LegacyProvider); legacy {
				d.notifier.Notify(output.LevelWarn, NoticeLegacyWallet)
			} else {
				d.notifier.Notify(output.LevelInfo, NoticeInstallWallet)
			}
		case !identifiesAsWallet(candidate):
			d.notifier.Notify(output.LevelInfo, NoticeNotAWallet)
		default:
			found = Available
			d.provider = p
		}
	})
	return Capability(d.state.Load())
}

// Capability returns the detected state without triggering detection.
func (d *Detector) Capability() Capability {
	return Capability(d.state.Load())
}

// Provider returns the detected wallet provider. The second result is false
// unless Detect returned Available.
func (d *Detector) Provider() (Provider, bool) {
	if d.Detect() != Available {
		return nil, false
	}
	return d.provider, true
}

func identifiesAsWallet(v any) bool {
	w, ok := v.(WalletIdentifier)
	return ok && w.IsWallet()
}
