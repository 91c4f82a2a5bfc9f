package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"student":     RoleStudent,
		" Organizer ": RoleOrganizer,
		"ADMIN":       RoleAdmin,
		"principal":   RoleAdmin,
		"Principal":   RoleAdmin,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseRole("janitor")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestEventCapacityHelpers(t *testing.T) {
	e := &Event{Capacity: 3, RegisteredCount: 2}
	assert.Equal(t, 1, e.Remaining())
	assert.False(t, e.IsFull())

	e.RegisteredCount = 3
	assert.Equal(t, 0, e.Remaining())
	assert.True(t, e.IsFull())
}

func TestRegistrationStatusCounted(t *testing.T) {
	assert.True(t, RegistrationConfirmed.Counted())
	assert.True(t, RegistrationCheckedIn.Counted())
	assert.False(t, RegistrationPending.Counted())
	assert.False(t, RegistrationCancelled.Counted())
}

func TestEventStatusVisibility(t *testing.T) {
	assert.True(t, EventApproved.PubliclyVisible())
	assert.True(t, EventCompleted.PubliclyVisible())
	for _, s := range []EventStatus{EventDraft, EventPending, EventRejected, EventCancelled} {
		assert.False(t, s.PubliclyVisible(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, EventStatus("archived").Valid())
}

func TestActorOwnership(t *testing.T) {
	e := &Event{OrganizerID: "org-1"}
	assert.True(t, Actor{UserID: "org-1"}.Owns(e))
	assert.False(t, Actor{UserID: "org-2"}.Owns(e))
	assert.False(t, Actor{UserID: "org-1"}.Owns(nil))

	assert.Equal(t, "A participant", Actor{}.DisplayName())
	assert.Equal(t, "Asha", Actor{Name: "Asha"}.DisplayName())
}
