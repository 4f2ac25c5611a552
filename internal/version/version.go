// ABOUTME: Version information for the player binaries
// ABOUTME: Reported in the startup log and the remote handshake
package version

const (
	Version      = "0.3.0"
	Product      = "Cadence Player"
	Manufacturer = "Resonate"
)

// String identifies the software as "Product/Version"
func String() string {
	return Product + "/" + Version
}
