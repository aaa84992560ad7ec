package circulation

import (
	"github.com/google/uuid"
)

// Member is a registered library member. Number is the unique external
// identifier (student or member number). Members are never mutated by the
// loan engine.
type Member struct {
	ID       uuid.UUID
	Number   string
	Name     string
	Phone    string
	JoinedOn Date
}

// NewMember builds a member record with a fresh time-ordered id.
func NewMember(number, name, phone string, joinedOn Date) (Member, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Member{}, err
	}

	member := Member{
		ID:       id,
		Number:   number,
		Name:     name,
		Phone:    phone,
		JoinedOn: joinedOn,
	}

	if err := member.Validate(); err != nil {
		return Member{}, err
	}

	return member, nil
}

// Validate checks the fields membership requires before a member is created.
func (m Member) Validate() error {
	if m.Number == "" {
		return ErrEmptyMemberNumber
	}

	if m.Name == "" {
		return ErrEmptyMemberName
	}

	return nil
}
