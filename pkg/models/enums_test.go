package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("OrganizationOwner")
	require.NoError(t, err)
	assert.Equal(t, RoleOrganizationOwner, r)

	_, err = ParseRole("owner")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestParseRelationType(t *testing.T) {
	tests := []struct {
		in      string
		pending bool
		wantErr bool
	}{
		{"Relation", false, false},
		{"RequestToJoin", true, false},
		{"InvitationToUser", true, false},
		{"relation", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rt, err := ParseRelationType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pending, rt.Pending())
		})
	}
}

func TestEnumJSONRejectsUnknown(t *testing.T) {
	var rel Relation
	err := json.Unmarshal([]byte(`{"role":"Boss","relation_type":"Relation"}`), &rel)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"role":"Member","relation_type":"Pending"}`), &rel)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"role":"Member","relation_type":"Relation"}`), &rel)
	require.NoError(t, err)
	assert.Equal(t, RoleMember, rel.Role)
	assert.True(t, rel.Confirmed())
}

func TestEnumScan(t *testing.T) {
	var role AdminRole
	require.NoError(t, role.Scan([]byte("SuperAdmin")))
	assert.Equal(t, AdminRoleSuperAdmin, role)

	assert.Error(t, role.Scan("Root"))
	assert.Error(t, role.Scan(42))

	var rt RelationType
	require.NoError(t, rt.Scan("InvitationToUser"))
	assert.Equal(t, RelationTypeInvitationToUser, rt)
}

func TestEnumValueRejectsUnknown(t *testing.T) {
	_, err := Role("Boss").Value()
	assert.Error(t, err)

	v, err := RoleMember.Value()
	require.NoError(t, err)
	assert.Equal(t, "Member", v)
}

func TestForCallsRoundTrip(t *testing.T) {
	in := ForCalls{{Name: "Reception", PhoneNumber: "+998901234567"}}
	v, err := in.Value()
	require.NoError(t, err)

	var out ForCalls
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)
}

func TestDefaultBranchName(t *testing.T) {
	assert.Equal(t, "Acme_main", DefaultBranchName("Acme"))
}
