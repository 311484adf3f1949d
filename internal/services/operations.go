package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/amqp"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/remote"
)

// AddExpense stores a new unsynced expense locally, then, for a signed-in user with a
// photo, uploads the photo and pushes the row. The returned expense is the latest
// local version. The error is reserved for validation and local store failures.
func (e *SyncEngine) AddExpense(ctx context.Context, amount decimal.Decimal, description, photoRef string) (core.Expense, Result, error) {
	start := e.now()
	res := Result{Op: applog.OpAdd}

	session, displayName := e.currentSession()
	exp := core.NewExpense(amount, description, photoRef, session, displayName, start)
	if err := exp.Validate(); err != nil {
		return core.Expense{}, res, err
	}
	if err := e.local.Upsert(ctx, exp); err != nil {
		return core.Expense{}, res, fmt.Errorf("save expense locally: %w", err)
	}
	if err := e.reloadRecords(ctx); err != nil {
		return exp, res, err
	}
	e.log.InfoContext(ctx, "Expense saved locally", applog.NewFields().WithExpense(exp).ToSlice()...)
	e.publish(ctx, amqp.NewExpenseEvent(amqp.EventCreated, exp, e.now()))

	push := session.IsAuthenticated() && (photoRef != "" || e.opts.PushWithoutPhoto)
	if !push {
		e.finish(ctx, res, start, nil)
		return exp, res, nil
	}

	synced := exp
	if photoRef != "" {
		url, upload := e.UploadPhoto(ctx, photoRef)
		res.Steps = append(res.Steps, upload.Steps...)
		if url == "" {
			e.finish(ctx, res, start, applog.NewFields().WithExpense(exp))
			return exp, res, nil
		}
		synced.RemotePhotoURL = url
	}

	insertErr := e.rows.Insert(ctx, remote.RowFromExpense(synced))
	res.record(StepInsertRow, insertErr)
	synced.Synced = insertErr == nil

	if err := e.local.Upsert(ctx, synced); err != nil {
		return exp, res, fmt.Errorf("save synced expense locally: %w", err)
	}
	if err := e.reloadRecords(ctx); err != nil {
		return synced, res, err
	}
	if synced.Synced {
		e.publish(ctx, amqp.NewExpenseEvent(amqp.EventSynced, synced, e.now()))
	}
	e.finish(ctx, res, start, applog.NewFields().WithExpense(synced))
	return synced, res, nil
}

// UploadPhoto reads the photo behind ref and uploads it under a fresh random name,
// returning its public URL, or "" when any step failed.
func (e *SyncEngine) UploadPhoto(ctx context.Context, ref string) (string, Result) {
	res := Result{Op: applog.OpUpload}

	data, contentType, err := e.photos.ReadPhoto(ctx, ref)
	res.record(StepReadPhoto, err)
	if err != nil {
		return "", res
	}

	name := core.NewPhotoObjectName()
	err = e.bucket.Upload(ctx, name, data, contentType, true)
	res.record(StepUploadPhoto, err)
	if err != nil {
		return "", res
	}
	return e.bucket.PublicURL(name), res
}

// PullRemote copies every row owned by or shared with the current user into the
// local store, overwriting local versions. It does nothing while signed out.
func (e *SyncEngine) PullRemote(ctx context.Context) (int, Result, error) {
	start := e.now()
	res := Result{Op: applog.OpPull}

	email := e.Snapshot().CurrentEmail
	if email == "" {
		return 0, res, nil
	}

	rows, err := e.rows.SelectVisible(ctx, email)
	res.record(StepSelectRows, err)
	if err != nil {
		e.finish(ctx, res, start, applog.NewFields())
		return 0, res, nil
	}

	for _, row := range rows {
		if err := e.local.Upsert(ctx, row.Expense()); err != nil {
			return 0, res, fmt.Errorf("save pulled expense %s: %w", row.ID, err)
		}
	}
	if err := e.reloadRecords(ctx); err != nil {
		return len(rows), res, err
	}

	e.log.InfoContext(ctx, "Pulled remote expenses", applog.FieldEmail, email, applog.FieldCount, len(rows))
	e.publish(ctx, amqp.NewPulledEvent(email, len(rows), e.now()))
	e.finish(ctx, res, start, nil)
	return len(rows), res, nil
}

// ShareExpense grants friendEmail visibility of exp. The local copy is updated first
// and is kept even when the remote update fails.
func (e *SyncEngine) ShareExpense(ctx context.Context, exp core.Expense, friendEmail string) (core.Expense, Result, error) {
	start := e.now()
	res := Result{Op: applog.OpShare}

	friendEmail = strings.TrimSpace(friendEmail)
	if err := core.ValidateEmail(friendEmail); err != nil {
		return exp, res, err
	}
	shared := exp
	shared.SharedWithEmail = friendEmail
	shared.Synced = true

	if err := e.local.Upsert(ctx, shared); err != nil {
		return exp, res, fmt.Errorf("save shared expense locally: %w", err)
	}
	if err := e.reloadRecords(ctx); err != nil {
		return shared, res, err
	}

	res.record(StepUpdateRow, e.rows.UpdateSharedWith(ctx, shared.ID, friendEmail))
	if res.OK() {
		e.log.InfoContext(ctx, "Expense shared", applog.NewFields().WithExpense(shared).ToSlice()...)
		e.publish(ctx, amqp.NewExpenseEvent(amqp.EventShared, shared, e.now()))
	}
	e.finish(ctx, res, start, applog.NewFields().WithExpense(shared))
	return shared, res, nil
}

// DeleteExpense removes exp locally, then deletes the remote row and the remote
// photo. Each remote step runs regardless of the others' outcome.
func (e *SyncEngine) DeleteExpense(ctx context.Context, exp core.Expense) (Result, error) {
	start := e.now()
	res := Result{Op: applog.OpDelete}

	if err := e.local.Delete(ctx, exp.ID); err != nil {
		return res, fmt.Errorf("delete expense locally: %w", err)
	}
	if err := e.reloadRecords(ctx); err != nil {
		return res, err
	}

	res.record(StepDeleteRow, e.rows.Delete(ctx, exp.ID))
	if name := exp.PhotoObjectName(); name != "" {
		res.record(StepDeletePhoto, e.bucket.Remove(ctx, name))
	}

	e.log.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, exp.ID, applog.FieldSuccess, res.OK())
	e.publish(ctx, amqp.NewExpenseEvent(amqp.EventDeleted, exp, e.now()))
	e.finish(ctx, res, start, applog.NewFields().WithExpense(exp))
	return res, nil
}

// SignIn asks the provider for a session. State changes arrive through the session
// subscription, not from this call.
func (e *SyncEngine) SignIn(ctx context.Context) Result {
	start := e.now()
	res := Result{Op: applog.OpSignIn}
	res.record(StepSignIn, e.session.SignIn(ctx))
	e.finish(ctx, res, start, nil)
	return res
}

// SignOut ends the session and always resets the identity and clears the local
// store, even when the provider call failed.
func (e *SyncEngine) SignOut(ctx context.Context) (Result, error) {
	start := e.now()
	res := Result{Op: applog.OpSignOut}
	res.record(StepSignOut, e.session.SignOut(ctx))

	e.applySession(core.Anonymous)
	if err := e.clearLocal(ctx); err != nil {
		return res, err
	}
	e.log.InfoContext(ctx, "Signed out and cleared local data", applog.FieldSuccess, res.OK())
	e.finish(ctx, res, start, nil)
	return res, nil
}
