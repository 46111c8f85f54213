// Package sampler provides foreground-app sample sources. A real
// deployment wires a platform adapter into ChannelSampler; tests and
// demos use ReplaySampler.
package sampler

import "context"

// Sample is one observation of the foreground app. PackageName is ""
// when no app is foreground (launcher, lock screen). Generation changes
// every time the platform reconfirms the same package as foreground, so
// consumers can tell "still here" apart from a duplicate delivery.
type Sample struct {
	PackageName string
	Generation  uint64
	AtMillis    int64
}

// Source yields foreground samples until the context ends or the source
// is exhausted. Start may be called again after the previous channel
// closed; sources are restartable.
type Source interface {
	Start(ctx context.Context) (<-chan Sample, error)
}
