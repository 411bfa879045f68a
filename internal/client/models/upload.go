package models

// QueuedUpload is the persisted part of a pending blob upload.
type QueuedUpload struct {
	ID              string
	FilePath        string
	DestinationPath string
	Metadata        map[string]string
	EnqueuedAt      int64
	Attempts        int
	LastError       string
}

// UploadCallbacks are the caller's hooks for a live upload. Any of them may be nil.
type UploadCallbacks struct {
	// OnProgress receives the transferred percentage in [0, 100].
	OnProgress func(percent float64)
	// OnComplete receives the retrieval URL of the uploaded object.
	OnComplete func(url string)
	OnError    func(err error)
}

// Upload is an entry of the upload queue: either a LiveUpload enqueued in this
// process, or a RecoveredUpload reloaded from storage whose callbacks are gone.
type Upload interface {
	Record() *QueuedUpload
	isUpload()
}

// LiveUpload carries callbacks supplied at enqueue time.
type LiveUpload struct {
	QueuedUpload
	Callbacks UploadCallbacks
}

func (u *LiveUpload) Record() *QueuedUpload { return &u.QueuedUpload }
func (*LiveUpload) isUpload()               {}

// RecoveredUpload was reloaded after a restart. Its outcome is only logged.
type RecoveredUpload struct {
	QueuedUpload
}

func (u *RecoveredUpload) Record() *QueuedUpload { return &u.QueuedUpload }
func (*RecoveredUpload) isUpload()               {}

// DeadUpload is an upload that exhausted its retry budget.
type DeadUpload struct {
	QueuedUpload
	DeadAt int64
}
