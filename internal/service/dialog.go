package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
)

// mobilePattern is the canonical mobile number format, hyphens optional.
var mobilePattern = regexp.MustCompile(`^09\d{2}-?\d{3}-?\d{3}$`)

const deptPayloadPrefix = "dept_"

// DialogAttachments releases or hands over images staged during a dialog.
type DialogAttachments interface {
	Paths(ctx context.Context, sessionID uuid.UUID) ([]string, error)
	Detach(ctx context.Context, sessionID uuid.UUID) error
	Discard(ctx context.Context, sessionID uuid.UUID) error
}

// Result is what the caller should send back to the user.
type Result struct {
	Messages  []line.Message
	Done      bool
	Cancelled bool
	TicketNo  string
}

type InputClass int

const (
	InputText InputClass = iota
	InputPostback
)

type Input struct {
	Class InputClass
	Value string
}

func TextInput(s string) Input     { return Input{Class: InputText, Value: s} }
func PostbackInput(s string) Input { return Input{Class: InputPostback, Value: s} }

// outcome of one step handler. Exactly one of reject/cancel/complete/next
// is meaningful; handlers are pure, persistence happens afterwards.
type outcome struct {
	reject   string
	cancel   bool
	complete bool
	next     domain.Step
	merge    map[string]any
}

type stepFunc func(ctx context.Context, sess *domain.DialogSession, value string) (outcome, error)

type transitionKey struct {
	step  domain.Step
	class InputClass
}

// Dialog walks a user through ticket creation one validated step at a time.
type Dialog struct {
	sessions    *SessionStore
	tickets     TicketCreator
	departments Departments
	attachments DialogAttachments

	table map[transitionKey]stepFunc
}

func NewDialog(sessions *SessionStore, tickets TicketCreator, departments Departments, attachments DialogAttachments) *Dialog {
	d := &Dialog{
		sessions:    sessions,
		tickets:     tickets,
		departments: departments,
		attachments: attachments,
	}
	d.table = map[transitionKey]stepFunc{
		{domain.StepTitle, InputText}:          d.stepTitle,
		{domain.StepDescription, InputText}:    d.stepDescription,
		{domain.StepDepartment, InputText}:     d.stepDepartmentText,
		{domain.StepDepartment, InputPostback}: d.stepDepartmentPostback,
		{domain.StepUrgency, InputText}:        d.stepUrgency,
		{domain.StepUrgency, InputPostback}:    d.stepUrgency,
		{domain.StepContactName, InputText}:    d.stepContactName,
		{domain.StepContactPhone, InputText}:   d.stepContactPhone,
		{domain.StepConfirm, InputText}:        d.stepConfirm,
		{domain.StepConfirm, InputPostback}:    d.stepConfirm,
	}
	return d
}

// Start begins a new dialog for the user. domain.ErrDialogInProgress is
// returned when a non-expired session already exists.
func (d *Dialog) Start(ctx context.Context, externalID string, userID int64) (Result, error) {
	sess, err := d.sessions.Begin(ctx, externalID, userID)
	if err != nil {
		return Result{}, err
	}
	prompt, err := d.promptFor(ctx, sess)
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: prompt}, nil
}

// HandleInput validates the input against the session's current step,
// persists the advanced state, and returns the next prompt. Invalid input
// leaves the session untouched and returns a re-prompt.
func (d *Dialog) HandleInput(ctx context.Context, sess *domain.DialogSession, in Input) (Result, error) {
	value := strings.TrimSpace(in.Value)
	if isCancelKeyword(value) {
		return d.Cancel(ctx, sess)
	}

	handler, ok := d.table[transitionKey{sess.Step, in.Class}]
	if !ok {
		return Result{Messages: []line.Message{line.Text("Please answer this step with a text message.")}}, nil
	}

	out, err := handler(ctx, sess, value)
	if err != nil {
		return Result{}, err
	}
	switch {
	case out.reject != "":
		return Result{Messages: []line.Message{line.Text(out.reject)}}, nil
	case out.cancel:
		return d.Cancel(ctx, sess)
	case out.complete:
		return d.complete(ctx, sess)
	}

	for k, v := range out.merge {
		sess.SetField(k, v)
	}
	sess.Step = out.next
	if err := d.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			return Result{Messages: []line.Message{
				line.Text("Your messages arrived out of order. Please resend the last one."),
			}}, nil
		}
		return Result{}, err
	}

	prompt, err := d.promptFor(ctx, sess)
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: prompt}, nil
}

// Cancel deletes the session and discards staged attachments.
func (d *Dialog) Cancel(ctx context.Context, sess *domain.DialogSession) (Result, error) {
	if err := d.attachments.Discard(ctx, sess.ID); err != nil {
		return Result{}, fmt.Errorf("discard attachments: %w", err)
	}
	if err := d.sessions.Delete(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("delete session: %w", err)
	}
	return Result{
		Cancelled: true,
		Messages:  []line.Message{line.Text("Ticket creation cancelled. Send \"" + config.TriggerKeyword + "\" to start again.")},
	}, nil
}

func (d *Dialog) stepTitle(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	if n := utf8.RuneCountInString(value); n < config.TitleMinLen || n > config.TitleMaxLen {
		return outcome{reject: fmt.Sprintf("The title must be %d-%d characters. Please try again.",
			config.TitleMinLen, config.TitleMaxLen)}, nil
	}
	return outcome{
		next:  domain.StepDescription,
		merge: map[string]any{domain.FieldTitle: value},
	}, nil
}

func (d *Dialog) stepDescription(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	if n := utf8.RuneCountInString(value); n < config.DescriptionMinLen || n > config.DescriptionMaxLen {
		return outcome{reject: fmt.Sprintf("The description must be %d-%d characters. Please try again.",
			config.DescriptionMinLen, config.DescriptionMaxLen)}, nil
	}
	return outcome{
		next:  domain.StepDepartment,
		merge: map[string]any{domain.FieldDescription: value},
	}, nil
}

func (d *Dialog) stepDepartmentText(ctx context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	deps, err := d.departments.ListActive(ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("list departments: %w", err)
	}
	for _, dep := range deps {
		if strings.EqualFold(dep.Name, value) {
			return deptOutcome(dep), nil
		}
	}
	return outcome{reject: "I don't recognize that department. Please pick one of the buttons."}, nil
}

func (d *Dialog) stepDepartmentPostback(ctx context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	raw, ok := strings.CutPrefix(value, deptPayloadPrefix)
	if !ok {
		return outcome{reject: "I don't recognize that selection. Please pick one of the buttons."}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return outcome{reject: "I don't recognize that selection. Please pick one of the buttons."}, nil
	}
	dep, err := d.departments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDepartmentNotFound) {
			return outcome{reject: "That department is no longer available. Please pick another."}, nil
		}
		return outcome{}, err
	}
	if !dep.Active {
		return outcome{reject: "That department is no longer available. Please pick another."}, nil
	}
	return deptOutcome(*dep), nil
}

func deptOutcome(dep domain.Department) outcome {
	return outcome{
		next: domain.StepUrgency,
		merge: map[string]any{
			domain.FieldDepartmentID:   dep.ID,
			domain.FieldDepartmentName: dep.Name,
		},
	}
}

func (d *Dialog) stepUrgency(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	urgency, ok := domain.ParseUrgency(value)
	if !ok {
		return outcome{reject: "Please choose an urgency: low, medium, or high."}, nil
	}
	return outcome{
		next:  domain.StepContactName,
		merge: map[string]any{domain.FieldUrgency: string(urgency)},
	}, nil
}

func (d *Dialog) stepContactName(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	if n := utf8.RuneCountInString(value); n < config.ContactNameMinLen || n > config.ContactNameMaxLen {
		return outcome{reject: fmt.Sprintf("The contact name must be %d-%d characters. Please try again.",
			config.ContactNameMinLen, config.ContactNameMaxLen)}, nil
	}
	return outcome{
		next:  domain.StepContactPhone,
		merge: map[string]any{domain.FieldContactName: value},
	}, nil
}

func (d *Dialog) stepContactPhone(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	if !mobilePattern.MatchString(value) {
		return outcome{reject: "That doesn't look like a mobile number (09xx-xxx-xxx). Please try again."}, nil
	}
	return outcome{
		next:  domain.StepConfirm,
		merge: map[string]any{domain.FieldContactPhone: value},
	}, nil
}

func (d *Dialog) stepConfirm(_ context.Context, _ *domain.DialogSession, value string) (outcome, error) {
	switch strings.ToLower(value) {
	case config.ConfirmKeyword:
		return outcome{complete: true}, nil
	case config.CancelKeyword:
		return outcome{cancel: true}, nil
	default:
		return outcome{reject: "Please choose Confirm or Cancel."}, nil
	}
}

// complete creates the ticket from the accumulated fields and deletes the
// session. The required keys are checked explicitly rather than trusting
// that every prior step ran.
func (d *Dialog) complete(ctx context.Context, sess *domain.DialogSession) (Result, error) {
	in := domain.TicketInput{
		Title:        sess.StringField(domain.FieldTitle),
		Description:  sess.StringField(domain.FieldDescription),
		DepartmentID: sess.Int64Field(domain.FieldDepartmentID),
		Urgency:      domain.Urgency(sess.StringField(domain.FieldUrgency)),
		ContactName:  sess.StringField(domain.FieldContactName),
		ContactPhone: sess.StringField(domain.FieldContactPhone),
		CreatedBy:    sess.UserID,
	}
	if in.Title == "" || in.Description == "" || in.DepartmentID == 0 ||
		in.Urgency == "" || in.ContactName == "" || in.ContactPhone == "" {
		return Result{}, fmt.Errorf("session %s reached confirmation with incomplete fields", sess.ID)
	}

	paths, err := d.attachments.Paths(ctx, sess.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list attachments: %w", err)
	}
	in.ImageRefs = paths

	ticketNo, err := d.tickets.Create(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("create ticket: %w", err)
	}
	if err := d.attachments.Detach(ctx, sess.ID); err != nil {
		return Result{}, fmt.Errorf("detach attachments: %w", err)
	}
	if err := d.sessions.Delete(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("delete session: %w", err)
	}

	return Result{
		Done:     true,
		TicketNo: ticketNo,
		Messages: []line.Message{line.Text(fmt.Sprintf(
			"Your ticket has been created: %s\nWe'll notify you when its status changes.", ticketNo))},
	}, nil
}

func (d *Dialog) promptFor(ctx context.Context, sess *domain.DialogSession) ([]line.Message, error) {
	switch sess.Step {
	case domain.StepTitle:
		return []line.Message{line.Text(fmt.Sprintf(
			"Let's create a ticket. What's the issue? Give it a short title (%d-%d characters).",
			config.TitleMinLen, config.TitleMaxLen))}, nil

	case domain.StepDescription:
		return []line.Message{line.Text(fmt.Sprintf(
			"Got it. Now describe the problem in more detail (%d-%d characters). You can also send photos.",
			config.DescriptionMinLen, config.DescriptionMaxLen))}, nil

	case domain.StepDepartment:
		deps, err := d.departments.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list departments: %w", err)
		}
		items := make([]line.QuickReplyItem, 0, len(deps))
		for _, dep := range deps {
			payload := fmt.Sprintf("%s%d", deptPayloadPrefix, dep.ID)
			items = append(items, line.PostbackAction(dep.Name, payload, dep.Name))
		}
		return []line.Message{line.TextWithQuickReplies(
			"Which department should handle this?", items...)}, nil

	case domain.StepUrgency:
		return []line.Message{line.TextWithQuickReplies(
			"How urgent is it?",
			line.MessageAction("Low", string(domain.UrgencyLow)),
			line.MessageAction("Medium", string(domain.UrgencyMedium)),
			line.MessageAction("High", string(domain.UrgencyHigh)),
		)}, nil

	case domain.StepContactName:
		return []line.Message{line.Text("Who should we contact about this ticket? (name)")}, nil

	case domain.StepContactPhone:
		return []line.Message{line.Text("And a mobile number we can reach them at (09xx-xxx-xxx)?")}, nil

	case domain.StepConfirm:
		summary, err := d.summary(ctx, sess)
		if err != nil {
			return nil, err
		}
		return []line.Message{line.TextWithQuickReplies(
			summary,
			line.MessageAction("Confirm", config.ConfirmKeyword),
			line.MessageAction("Cancel", config.CancelKeyword),
		)}, nil

	default:
		return nil, fmt.Errorf("no prompt for step %q", sess.Step)
	}
}

func (d *Dialog) summary(ctx context.Context, sess *domain.DialogSession) (string, error) {
	paths, err := d.attachments.Paths(ctx, sess.ID)
	if err != nil {
		return "", fmt.Errorf("list attachments: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please review your ticket:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", sess.StringField(domain.FieldTitle))
	fmt.Fprintf(&b, "Description: %s\n", sess.StringField(domain.FieldDescription))
	fmt.Fprintf(&b, "Department: %s\n", sess.StringField(domain.FieldDepartmentName))
	fmt.Fprintf(&b, "Urgency: %s\n", sess.StringField(domain.FieldUrgency))
	fmt.Fprintf(&b, "Contact: %s (%s)\n", sess.StringField(domain.FieldContactName), sess.StringField(domain.FieldContactPhone))
	if len(paths) > 0 {
		fmt.Fprintf(&b, "Photos: %d attached\n", len(paths))
	}
	b.WriteString("\nShall I create it?")
	return b.String(), nil
}

func isCancelKeyword(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), config.CancelKeyword)
}
