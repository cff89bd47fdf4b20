package broker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoom_RegisterAssignsAnimalNameWhenMissing(t *testing.T) {
	r := newRoom("ROOM1")
	member, displaced, err := r.register(nil, "c1", "", RoleIdle)
	require.NoError(t, err)
	require.Nil(t, displaced)
	require.NotEmpty(t, member.DisplayName)
}

func TestRoom_RegisterResolvesDisplayNameCollisions(t *testing.T) {
	r := newRoom("ROOM1")
	_, _, err := r.register(nil, "c1", "Fox", RoleIdle)
	require.NoError(t, err)

	m2, _, err := r.register(nil, "c2", "Fox", RoleIdle)
	require.NoError(t, err)
	require.Equal(t, DisplayName("Fox-2"), m2.DisplayName)

	m3, _, err := r.register(nil, "c3", "Fox", RoleIdle)
	require.NoError(t, err)
	require.Equal(t, DisplayName("Fox-3"), m3.DisplayName)
}

func TestRoom_RegisterRejectsSecondHost(t *testing.T) {
	r := newRoom("ROOM1")
	_, _, err := r.register(nil, "host1", "Host", RoleHost)
	require.NoError(t, err)

	_, _, err = r.register(nil, "host2", "Other", RoleHost)
	require.ErrorIs(t, err, errHostExists)

	require.Nil(t, r.Member("host2"))
}

func TestRoom_RegisterIdempotentReplacesInPlace(t *testing.T) {
	r := newRoom("ROOM1")
	oldSession := &Session{}
	_, _, err := r.register(oldSession, "c1", "Fox", RoleIdle)
	require.NoError(t, err)

	newSess := &Session{}
	member, displaced, err := r.register(newSess, "c1", "Fox", RoleIdle)
	require.NoError(t, err)
	require.Same(t, oldSession, displaced)
	require.Equal(t, DisplayName("Fox"), member.DisplayName)
	require.Same(t, newSess, r.session("c1"))
}

func TestRoom_RosterSnapshotIsSortedByClientID(t *testing.T) {
	r := newRoom("ROOM1")
	r.register(nil, "zebra", "Z", RoleIdle)
	r.register(nil, "apple", "A", RoleIdle)

	roster := r.RosterSnapshot()
	require.Len(t, roster, 2)
	require.Equal(t, "apple", roster[0].ClientID)
	require.Equal(t, "zebra", roster[1].ClientID)
}

func TestRoom_RemoveReportsEmpty(t *testing.T) {
	r := newRoom("ROOM1")
	r.register(nil, "c1", "A", RoleIdle)

	_, empty := r.remove("c1")
	require.True(t, empty)
	require.Nil(t, r.Member("c1"))
}

func TestRoom_DemoteSpeakersResetsToIdle(t *testing.T) {
	r := newRoom("ROOM1")
	r.register(nil, "host", "H", RoleHost)
	r.register(nil, "s1", "S1", RoleIdle)
	r.setRole("s1", RoleSpeaker)

	r.demoteSpeakers()
	require.Equal(t, RoleIdle, r.Member("s1").Role)
}
