// Package txn tracks user-initiated contract transactions. Each kind of
// action owns a slot; while a slot is pending, new submissions for it are
// rejected so an action cannot be sent twice.
package txn

// Kind is a user action that sends a transaction.
type Kind string

// Transaction kinds.
const (
	Contribute      Kind = "contribute"
	CreateRequest   Kind = "createRequest"
	ApproveRequest  Kind = "approveRequest"
	FinalizeRequest Kind = "finalizeRequest"
	CreateCampaign  Kind = "createCampaign"
)

// Kinds lists every transaction kind.
func Kinds() []Kind {
	return []Kind{Contribute, CreateRequest, ApproveRequest, FinalizeRequest, CreateCampaign}
}

// Slot is the unit of mutual exclusion between submissions.
type Slot string

// Slots. Approving and finalizing share one slot.
const (
	SlotContribute     Slot = "contribute"
	SlotCreateRequest  Slot = "createRequest"
	SlotRequests       Slot = "requests"
	SlotCreateCampaign Slot = "createCampaign"
)

// LoadingMessage is shown while any transaction is pending.
const LoadingMessage = "Your transaction is pending, please wait..."

var kindSlots = map[Kind]Slot{
	Contribute:      SlotContribute,
	CreateRequest:   SlotCreateRequest,
	ApproveRequest:  SlotRequests,
	FinalizeRequest: SlotRequests,
	CreateCampaign:  SlotCreateCampaign,
}

var successMessages = map[Kind]string{
	Contribute:      "Thank you for your contribution!",
	CreateRequest:   "Request has been successfully created!",
	ApproveRequest:  "Request has been successfully approved!",
	FinalizeRequest: "Request has been successfully finalized!",
	CreateCampaign:  "Campaign has been successfully created!",
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindSlots[k]
	return ok
}

// Slot returns the slot k occupies while pending.
func (k Kind) Slot() Slot {
	return kindSlots[k]
}

// ChangesBalance reports whether a successful k can change the connected
// account's balance, so the session must be refreshed afterwards.
func (k Kind) ChangesBalance() bool {
	return k == Contribute || k == FinalizeRequest
}

// SuccessMessage is the notice shown when k succeeds.
func (k Kind) SuccessMessage() string {
	return successMessages[k]
}
