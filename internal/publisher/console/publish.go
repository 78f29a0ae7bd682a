package console

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

const maxSummaryLength = 2000

// PublishInput is the submitted publish form.
type PublishInput struct {
	VersionType   string `form:"versionType" validate:"omitempty,oneof=patch minor major"`
	Version       string `form:"version" validate:"required,dotted_version"`
	ChangeSummary string `form:"changeSummary" validate:"required,max=2000"`
	Author        string `form:"-" validate:"omitempty,max=200"`
}

func (in PublishInput) normalize() PublishInput {
	in.VersionType = strings.ToLower(strings.TrimSpace(in.VersionType))
	in.Version = strings.TrimSpace(in.Version)
	in.ChangeSummary = strings.TrimSpace(in.ChangeSummary)
	in.Author = strings.TrimSpace(in.Author)
	return in
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("dotted_version", func(fl validator.FieldLevel) bool {
		_, err := versions.ParseNumber(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "version" {
			return "Version number is required"
		}
		if fe.Field() == "changeSummary" {
			return "Change summary is required"
		}
		return "This field is required"
	case "dotted_version":
		return "Version must look like 1.2.3"
	case "oneof":
		return "Select a valid version type"
	case "max":
		if fe.Field() == "changeSummary" {
			return fmt.Sprintf("Change summary must be at most %d characters", maxSummaryLength)
		}
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	default:
		return "Invalid value"
	}
}

// validatePublish runs the local checks. existing is the current history used for the
// uniqueness rule.
func validatePublish(in PublishInput, existing []versions.Record) *ValidationError {
	fields := make(map[string]string)
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fields["form"] = "Invalid submission"
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = validationMessage(fe)
			}
		}
	}
	if _, bad := fields["version"]; !bad && versions.HasVersion(existing, in.Version) {
		fields["version"] = fmt.Sprintf("Version %s already exists", in.Version)
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Result reports the outcome of a publish or revert workflow.
type Result struct {
	Notice Notice
	Record versions.Record
	// Local is set when the change was applied only to this workspace.
	Local bool
	State State
}

// Publish validates in and promotes it through the deployment API. Validation failures
// never reach the network.
func (w *Workspace) Publish(ctx context.Context, token string, in PublishInput) (Result, error) {
	in = in.normalize()
	typ, ok := versions.ParseType(in.VersionType)
	if !ok {
		typ = versions.TypePatch
	}

	w.mu.Lock()
	w.publish.Open = true
	w.publish.Error = ""
	w.publish.Form.VersionType = typ
	w.publish.Form.Version = in.Version
	w.publish.Form.ChangeSummary = in.ChangeSummary
	w.publish.Form.Suggested = versions.SuggestNext(w.list, typ)
	w.publish.Form.FieldErrors = nil
	if verr := validatePublish(in, w.list); verr != nil {
		w.publish.Form.FieldErrors = verr.Fields
		state := w.snapshotLocked()
		w.mu.Unlock()
		for field := range verr.Fields {
			w.recorder.RecordValidationFailure(field)
		}
		return Result{State: state}, verr
	}
	w.publish.Submitting = true
	w.mu.Unlock()

	req := deployapi.PublishRequest{
		Version:       in.Version,
		VersionType:   typ,
		ChangeSummary: in.ChangeSummary,
		Author:        in.Author,
		StagingURL:    w.site.StagingURL,
		ProductionURL: w.site.ProductionURL,
	}
	res, err := w.service().Publish(ctx, token, req)

	switch {
	case err == nil:
		rec := versions.Record{
			Version:       req.Version,
			Type:          req.VersionType,
			ChangeSummary: req.ChangeSummary,
			Timestamp:     w.now().UTC(),
			Author:        req.Author,
			Status:        versions.StatusActive,
		}
		if res != nil && res.Record != nil {
			rec = *res.Record
		}
		w.mu.Lock()
		w.publish = ModalState{Kind: ModalPublish}
		w.mu.Unlock()

		if _, syncErr := w.Sync(ctx, token); syncErr != nil && !errors.Is(syncErr, ErrStaleResult) {
			w.logger.Warn("refresh after publish failed", zap.Error(syncErr))
		}
		return Result{
			Notice: Notice{Tone: ToneSuccess, Message: w.publishedMessage(req.Version)},
			Record: rec,
			State:  w.Snapshot(),
		}, nil

	case isServerError(err):
		msg, _ := deployapi.ServerMessage(err)
		w.mu.Lock()
		w.publish.Submitting = false
		w.publish.Error = fmt.Sprintf(msgPublishRejected, msg)
		notice := Notice{Tone: ToneError, Message: w.publish.Error}
		state := w.snapshotLocked()
		w.mu.Unlock()
		return Result{Notice: notice, State: state}, fmt.Errorf("console: publish %s: %w", req.Version, err)

	case w.fallback && errors.Is(err, deployapi.ErrUnavailable):
		now := w.now().UTC()
		rec := versions.Record{
			ID:            versions.ID(strings.ToLower(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())),
			Version:       req.Version,
			Type:          req.VersionType,
			ChangeSummary: req.ChangeSummary,
			Timestamp:     now,
			Author:        req.Author,
			Status:        versions.StatusActive,
		}
		w.mu.Lock()
		w.list = versions.Prepend(w.list, rec)
		w.unconfirmed = true
		w.publish = ModalState{Kind: ModalPublish}
		state := w.snapshotLocked()
		w.mu.Unlock()

		w.recorder.RecordFallback("publish")
		w.logger.Warn("publish applied locally", zap.String("version", rec.Version), zap.Error(err))
		return Result{
			Notice: Notice{Tone: ToneWarning, Message: fmt.Sprintf(msgPublishLocal, rec.Version)},
			Record: rec,
			Local:  true,
			State:  state,
		}, nil

	default:
		w.mu.Lock()
		w.publish.Submitting = false
		w.publish.Error = msgPublishNetwork
		notice := Notice{Tone: ToneError, Message: msgPublishNetwork}
		state := w.snapshotLocked()
		w.mu.Unlock()
		return Result{Notice: notice, State: state}, fmt.Errorf("console: publish %s: %w", req.Version, err)
	}
}

func (w *Workspace) publishedMessage(version string) string {
	if host := hostOf(w.site.ProductionURL); host != "" {
		return fmt.Sprintf(msgPublishLive, version, host)
	}
	return fmt.Sprintf(msgPublishSucceeded, version)
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Host
}

func isServerError(err error) bool {
	_, ok := deployapi.ServerMessage(err)
	return ok
}
