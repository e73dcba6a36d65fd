package keyfs

type Option func(ns *Namespace)

func WithTimeSource(timeSource TimeSource) Option {
	return func(ns *Namespace) { ns.timeSource = timeSource }
}
