/*
joint.go - Joint purchase splitter

Constructs the event pair that balance derivation later prices: one JOINT
parent (decrementing stock once) plus one JOINT_BUY_PRODUCT child per
participant share. Duplicate participants are allowed and mean multiple
shares. No cost is computed or stored here - derivation recomputes it from
current data every time.
*/
package ledger

import "context"

// JointSplitter appends joint purchases.
type JointSplitter struct {
	log *Log
}

func NewJointSplitter(log *Log) *JointSplitter {
	return &JointSplitter{log: log}
}

// Split appends one JOINT for count units of the product plus one child per
// entry of userIDs. The instigator must be among the participants.
func (s *JointSplitter) Split(ctx context.Context, productID, count, instigatorID int64, userIDs []int64, message string) ([]Transaction, error) {
	if len(userIDs) == 0 {
		return nil, invalidf("no_participants", "joint purchase needs at least one participant")
	}
	instigatorIn := false
	for _, id := range userIDs {
		if id == instigatorID {
			instigatorIn = true
			break
		}
	}
	if !instigatorIn {
		return nil, invalidf("instigator_not_participant",
			"instigator %d is not among the participants", instigatorID)
	}

	parent, err := NewJoint(instigatorID, productID, count, message)
	if err != nil {
		return nil, err
	}
	children := make([]Transaction, len(userIDs))
	for i, id := range userIDs {
		// The parent id is assigned at append time; the store links the
		// children inside the same atomic batch.
		children[i], err = NewJointBuy(id, 0, message)
		if err != nil {
			return nil, err
		}
	}

	return s.log.AppendJoint(ctx, parent, children)
}
