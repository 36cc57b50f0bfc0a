package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber scripts the read surface Detect probes against.
type fakeProber struct {
	deployed    bool
	deployedErr error

	interfaces    map[[4]byte]bool
	interfacesErr error

	owner    string
	ownerErr error

	pendingOwner    string
	pendingOwnerErr error

	logAccess bool
}

func (f *fakeProber) IsContract(ctx context.Context) (bool, error) {
	return f.deployed, f.deployedErr
}

func (f *fakeProber) SupportsInterface(ctx context.Context, interfaceID [4]byte) (bool, error) {
	if f.interfacesErr != nil {
		return false, f.interfacesErr
	}
	return f.interfaces[interfaceID], nil
}

func (f *fakeProber) Owner(ctx context.Context) (string, error) {
	return f.owner, f.ownerErr
}

func (f *fakeProber) PendingOwner(ctx context.Context) (string, error) {
	return f.pendingOwner, f.pendingOwnerErr
}

func (f *fakeProber) HasLogAccess() bool {
	return f.logAccess
}

var errExecutionReverted = errors.New("execution reverted")

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		prober *fakeProber
		want   Capabilities
	}{
		{
			name: "full AccessControlDefaultAdminRules contract",
			prober: &fakeProber{
				deployed: true,
				interfaces: map[[4]byte]bool{
					InterfaceIDAccessControl:                  true,
					InterfaceIDAccessControlEnumerable:        true,
					InterfaceIDAccessControlDefaultAdminRules: true,
				},
				ownerErr:        errExecutionReverted,
				pendingOwnerErr: errExecutionReverted,
				logAccess:       true,
			},
			want: Capabilities{
				HasAccessControl:   true,
				HasEnumerableRoles: true,
				HasTwoStepAdmin:    true,
				SupportsHistory:    true,
				Notes: []string{
					"owner probe: execution reverted",
					"pending owner probe: execution reverted",
				},
			},
		},
		{
			name: "plain Ownable2Step contract",
			prober: &fakeProber{
				deployed:      true,
				interfacesErr: errExecutionReverted,
				owner:         "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e",
				logAccess:     true,
			},
			want: Capabilities{
				HasOwnable:        true,
				HasTwoStepOwnable: true,
				SupportsHistory:   true,
				Notes: []string{
					"AccessControl probe: execution reverted",
					"enumerable roles probe: execution reverted",
					"two-step admin probe: execution reverted",
				},
			},
		},
		{
			name: "pendingOwner without owner does not count",
			prober: &fakeProber{
				deployed:      true,
				interfacesErr: errExecutionReverted,
				ownerErr:      errExecutionReverted,
			},
			want: Capabilities{
				Notes: []string{
					"AccessControl probe: execution reverted",
					"enumerable roles probe: execution reverted",
					"two-step admin probe: execution reverted",
					"owner probe: execution reverted",
				},
			},
		},
		{
			name: "no log access disables history",
			prober: &fakeProber{
				deployed: true,
				interfaces: map[[4]byte]bool{
					InterfaceIDAccessControl: true,
				},
				ownerErr:        errExecutionReverted,
				pendingOwnerErr: errExecutionReverted,
			},
			want: Capabilities{
				HasAccessControl: true,
				Notes: []string{
					"owner probe: execution reverted",
					"pending owner probe: execution reverted",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDetector(tt.prober).Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFailures(t *testing.T) {
	t.Run("no code at address", func(t *testing.T) {
		_, err := NewDetector(&fakeProber{deployed: false}).Detect(context.Background())
		assert.ErrorContains(t, err, "no contract code at address")
	})

	t.Run("code probe error propagates", func(t *testing.T) {
		rpcErr := errors.New("connection refused")
		_, err := NewDetector(&fakeProber{deployedErr: rpcErr}).Detect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, rpcErr)
		assert.ErrorContains(t, err, "capability detection failed")
	})
}

func TestSupported(t *testing.T) {
	assert.False(t, Capabilities{}.Supported())
	assert.True(t, Capabilities{HasAccessControl: true}.Supported())
	assert.True(t, Capabilities{HasOwnable: true}.Supported())
	assert.False(t, Capabilities{HasEnumerableRoles: true, SupportsHistory: true}.Supported(),
		"neither enumeration nor history makes a contract manageable on its own")
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no supported interfaces", Capabilities{}.Summary())
	assert.Equal(t, "AccessControl, enumerable roles, Ownable",
		Capabilities{HasAccessControl: true, HasEnumerableRoles: true, HasOwnable: true}.Summary())
}
