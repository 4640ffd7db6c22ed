package render

import "regexp"

// DeviceClass buckets clients by how many particles they can animate.
type DeviceClass string

const (
	Desktop DeviceClass = "desktop"
	Mobile  DeviceClass = "mobile"
)

var mobileUA = regexp.MustCompile(`Mobi|Android`)

// ClassifyUserAgent returns Mobile for user agents matching Mobi or Android.
func ClassifyUserAgent(ua string) DeviceClass {
	if mobileUA.MatchString(ua) {
		return Mobile
	}
	return Desktop
}

// ParticleCount returns the default particle budget for the class.
func (c DeviceClass) ParticleCount() int {
	if c == Mobile {
		return 6000
	}
	return 12000
}

// Valid reports whether c is a known class.
func (c DeviceClass) Valid() bool {
	return c == Desktop || c == Mobile
}
