package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/queue"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

var errUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

func (a *App) Create(ctx context.Context, args []string) error {
	return a.write(remote.KindCreate, args)
}

func (a *App) Update(ctx context.Context, args []string) error {
	return a.write(remote.KindUpdate, args)
}

func (a *App) write(kind remote.Kind, args []string) error {
	if len(args) < 3 {
		return usage(fmt.Sprintf("%s <collection> <id> name=value...", kind))
	}
	payload, err := models.ParsePayload(args[2:])
	if err != nil {
		return err
	}
	if err := a.ops.Enqueue(args[0], args[1], kind, payload); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Queued %s of %s/%s", kind, args[0], args[1]))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("delete <collection> <id>")
	}
	if err := a.ops.Enqueue(args[0], args[1], remote.KindDelete, nil); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Queued delete of %s/%s", args[0], args[1]))
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("upload <file> <destination> [name=value...]")
	}
	meta, err := models.ParseMetadata(args[2:])
	if err != nil {
		return err
	}
	file, dest := args[0], args[1]
	cb := models.UploadCallbacks{
		OnProgress: func(pct float64) {
			a.logger.Debug(ctx, "upload progress", "destination", dest, "percent", pct)
		},
		OnComplete: func(url string) {
			printlnFn(fmt.Sprintf("Uploaded %s: %s", file, url))
		},
		OnError: func(err error) {
			printlnFn(fmt.Sprintf("Upload of %s failed: %v", file, err))
		},
	}
	if err := a.uploads.Enqueue(file, dest, meta, cb); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Queued upload of %s to %s", file, dest))
	return nil
}

func (a *App) ShowStatus(ctx context.Context) error {
	s := a.Status(ctx)
	printlnFn(fmt.Sprintf("mode: %s, syncing: %t, uploading: %t", a.mode(), s.Syncing, s.Uploading))
	printlnFn(fmt.Sprintf("pending operations: %d, pending uploads: %d", s.PendingOperations, s.PendingUploads))
	printlnFn(fmt.Sprintf("dead operations: %d, dead uploads: %d", s.DeadOperations, s.DeadUploads))
	for _, op := range a.ops.Pending() {
		printlnFn(fmt.Sprintf("  op %s %s %s/%s attempts=%d %s",
			op.ID, op.Kind, op.Collection, op.DocumentID, op.Attempts, op.LastError))
	}
	for _, u := range a.uploads.Pending() {
		printlnFn(fmt.Sprintf("  upload %s %s -> %s attempts=%d %s",
			u.ID, u.FilePath, u.DestinationPath, u.Attempts, u.LastError))
	}
	return nil
}

func (a *App) ListDead(ctx context.Context) error {
	ops, err := a.ops.DeadLetters(ctx)
	if err != nil {
		return err
	}
	ups, err := a.uploads.DeadLetters(ctx)
	if err != nil {
		return err
	}
	if len(ops) == 0 && len(ups) == 0 {
		printlnFn("No dead letters")
		return nil
	}
	for _, d := range ops {
		printlnFn(fmt.Sprintf("op %s %s %s/%s dead since %s: %s",
			d.ID, d.Kind, d.Collection, d.DocumentID, time.UnixMilli(d.DeadAt).Format(time.DateTime), d.LastError))
	}
	for _, d := range ups {
		printlnFn(fmt.Sprintf("upload %s %s -> %s dead since %s: %s",
			d.ID, d.FilePath, d.DestinationPath, time.UnixMilli(d.DeadAt).Format(time.DateTime), d.LastError))
	}
	return nil
}

func (a *App) RetryDead(ctx context.Context) error {
	nOps, err := a.ops.RequeueDeadLetters(ctx)
	if err != nil {
		return err
	}
	nUps, err := a.uploads.RequeueDeadLetters(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Requeued %d operations and %d uploads", nOps, nUps))
	return nil
}

func (a *App) Discard(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("discard <id>")
	}
	id := args[0]
	err := a.ops.Discard(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		err = a.uploads.Discard(ctx, id)
	}
	if err != nil {
		return err
	}
	printlnFn("Discarded", id)
	return nil
}

func (a *App) SetNetwork(ctx context.Context, mode string) error {
	switch mode {
	case "online":
		a.monitor.SetOnline(true)
	case "offline":
		a.monitor.SetOnline(false)
	case "auto":
		a.monitor.ClearOverride()
		a.monitor.Probe(ctx)
	default:
		return usage("online | offline | auto")
	}
	return nil
}

func (a *App) Drain(ctx context.Context) error {
	res := a.ops.Drain(ctx)
	if res.Busy {
		printlnFn("A replay is already running")
	} else {
		printlnFn(fmt.Sprintf("operations: applied=%d skipped=%d failed=%d dead=%d deferred=%d",
			res.Applied, res.Skipped, res.Failed, res.Dead, res.Deferred))
	}

	var done, dead int
	for ctx.Err() == nil {
		step := a.uploads.Process(ctx)
		if step == queue.StepCompleted {
			done++
			continue
		}
		if step == queue.StepDeadLettered {
			dead++
			continue
		}
		if step != queue.StepIdle {
			printlnFn("uploads:", step)
		}
		break
	}
	printlnFn(fmt.Sprintf("uploads: completed=%d dead=%d", done, dead))
	return nil
}
