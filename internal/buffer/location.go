package buffer

// Location names which storage slot currently holds the authoritative data
// for a Buffer.
type Location int

const (
	LocationInvalid Location = iota
	LocationHost
	LocationDevice
	LocationDeviceImage
)

func (l Location) String() string {
	switch l {
	case LocationHost:
		return "host"
	case LocationDevice:
		return "device"
	case LocationDeviceImage:
		return "device-image"
	default:
		return "invalid"
	}
}
