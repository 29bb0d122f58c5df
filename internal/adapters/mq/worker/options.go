package worker

// Option applies a configuration option to the IngestWorker.
type Option func(*IngestWorker)

// WithName sets the worker's name for logging.
func WithName(name string) Option {
	return func(w *IngestWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithObserver sets the post-store observer.
func WithObserver(o Observer) Option {
	return func(w *IngestWorker) {
		w.observer = o
	}
}
