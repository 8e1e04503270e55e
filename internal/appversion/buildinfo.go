// Package appversion carries the version string stamped into release builds.
package appversion

// value is overwritten at link time:
//
//	go build -ldflags "-X github.com/erichter2018/MosaicTools-sub001/internal/appversion.value=v1.2.0"
var value = "dev" //nolint:gochecknoglobals // link-time injection target

// String reports the stamped version; local builds report "dev".
func String() string {
	return value
}
