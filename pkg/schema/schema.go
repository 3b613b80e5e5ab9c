// Package schema implements the schema version negotiation performed during
// the connection handshake. The server announces the window of schema versions
// it can speak; the client refuses servers whose window does not overlap its
// own and otherwise settles on the highest version both sides support.
package schema

import (
	"fmt"

	"github.com/zwavego/zwsclient/pkg/wire"
)

// Schema versions this client can speak.
const (
	MinSupportedSchemaVersion = 31
	MaxSupportedSchemaVersion = 45
)

// VersionInfo describes the server identity and schema window announced in
// the handshake frame.
type VersionInfo struct {
	DriverVersion    string
	ServerVersion    string
	HomeID           int64
	MinSchemaVersion int
	MaxSchemaVersion int
}

// VersionInfoFromMessage builds a VersionInfo from the decoded handshake frame.
func VersionInfoFromMessage(msg *wire.VersionMessage) VersionInfo {
	return VersionInfo{
		DriverVersion:    msg.DriverVersion,
		ServerVersion:    msg.ServerVersion,
		HomeID:           msg.HomeID,
		MinSchemaVersion: msg.MinSchemaVersion,
		MaxSchemaVersion: msg.MaxSchemaVersion,
	}
}

// IncompatibleVersionError reports a server whose schema window does not
// overlap the client's supported range.
type IncompatibleVersionError struct {
	ServerMin int
	ServerMax int
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf(
		"server schema versions %d-%d are incompatible with supported versions %d-%d",
		e.ServerMin, e.ServerMax, MinSupportedSchemaVersion, MaxSupportedSchemaVersion,
	)
}

// Check verifies the server's schema window overlaps the supported range.
func Check(v VersionInfo) error {
	if v.MinSchemaVersion > MaxSupportedSchemaVersion ||
		v.MaxSchemaVersion < MinSupportedSchemaVersion {
		return &IncompatibleVersionError{
			ServerMin: v.MinSchemaVersion,
			ServerMax: v.MaxSchemaVersion,
		}
	}
	return nil
}

// Negotiate returns the schema version to use with a compatible server: the
// highest version both sides support.
func Negotiate(v VersionInfo) int {
	if v.MaxSchemaVersion < MaxSupportedSchemaVersion {
		return v.MaxSchemaVersion
	}
	return MaxSupportedSchemaVersion
}
