package permission

func OverloadAccess(overload func(string, uint32) error) func() {
	accessRef := access
	access = overload
	return func() { access = accessRef }
}

func OverloadIndexedDevices(overload bool) func() {
	indexedDevicesRef := indexedDevices
	indexedDevices = overload
	return func() { indexedDevices = indexedDevicesRef }
}
