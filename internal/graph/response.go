package graph

import (
	"errors"

	"github.com/graph-gophers/graphql-go"
	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/rs/zerolog/log"
)

// UserSuccessTypes values.
const (
	Registered             = "registered"
	LoggedIn               = "loggedIn"
	FetchedUser            = "fetchedUser"
	AllUsersFetched        = "allUsersFetched"
	UserUpdated            = "userUpdated"
	PasswordUpdated        = "passwordUpdated"
	PasswordResetEmailSent = "passwordResetEmailSent"
)

// ClientSuccessTypes values.
const (
	ClientAdded       = "clientAdded"
	ClientUpdated     = "clientUpdated"
	AllClientsFetched = "allClientsFetched"
	ClientFetched     = "clientFetched"
)

const genericStoreMessage = "Something went wrong, please try again"

// UserResponseResolver resolves the UserResponse union.
type UserResponseResolver struct {
	success *UserSuccessResolver
	errors  *ErrorsResolver
}

// ToUserSuccess selects the UserSuccess variant.
func (r *UserResponseResolver) ToUserSuccess() (*UserSuccessResolver, bool) {
	return r.success, r.success != nil
}

func (r *UserResponseResolver) ToErrors() (*ErrorsResolver, bool) {
	return r.errors, r.errors != nil
}

// ClientResponseResolver resolves the ClientResponse union.
type ClientResponseResolver struct {
	success *ClientSuccessResolver
	errors  *ErrorsResolver
}

// ToClientSuccess selects the ClientSuccess variant.
func (r *ClientResponseResolver) ToClientSuccess() (*ClientSuccessResolver, bool) {
	return r.success, r.success != nil
}

func (r *ClientResponseResolver) ToErrors() (*ErrorsResolver, bool) {
	return r.errors, r.errors != nil
}

func userSuccess(user models.User, tag, token string) *UserResponseResolver {
	return &UserResponseResolver{success: &UserSuccessResolver{user: user, tag: tag, token: token}}
}

func userSuccessList(users []models.User, tag string) *[]*UserResponseResolver {
	out := make([]*UserResponseResolver, 0, len(users))
	for _, u := range users {
		out = append(out, userSuccess(u, tag, ""))
	}
	return &out
}

func userError(err error) *UserResponseResolver {
	return &UserResponseResolver{errors: errorResponse(err)}
}

func userErrorList(err error) *[]*UserResponseResolver {
	out := []*UserResponseResolver{userError(err)}
	return &out
}

func clientSuccess(client models.Client, tag string) *ClientResponseResolver {
	return &ClientResponseResolver{success: &ClientSuccessResolver{client: client, tag: tag}}
}

func clientSuccessList(clients []models.Client, tag string) *[]*ClientResponseResolver {
	out := make([]*ClientResponseResolver, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientSuccess(c, tag))
	}
	return &out
}

func clientError(err error) *ClientResponseResolver {
	return &ClientResponseResolver{errors: errorResponse(err)}
}

func clientErrorList(err error) *[]*ClientResponseResolver {
	out := []*ClientResponseResolver{clientError(err)}
	return &out
}

// errorResponse is the one place a Go error becomes the Errors variant.
// Errors that do not carry an apperr kind are logged and reported as storeFailed.
func errorResponse(err error) *ErrorsResolver {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("Unclassified error reached the GraphQL boundary")
		return &ErrorsResolver{kind: apperr.StoreFailed, message: genericStoreMessage}
	}
	return &ErrorsResolver{kind: appErr.Kind, message: appErr.Message, fields: appErr.Fields}
}

// UserSuccessResolver resolves the UserSuccess type.
type UserSuccessResolver struct {
	user  models.User
	tag   string
	token string
}

func (r *UserSuccessResolver) ID() graphql.ID { return graphql.ID(r.user.ID) }
func (r *UserSuccessResolver) Email() string { return r.user.Email }
func (r *UserSuccessResolver) FirstName() *string { return optional(r.user.FirstName) }
func (r *UserSuccessResolver) LastName() *string { return optional(r.user.LastName) }
func (r *UserSuccessResolver) Token() *string { return optional(r.token) }
func (r *UserSuccessResolver) SuccessType() string { return r.tag }

// ErrorsResolver resolves the Errors type.
type ErrorsResolver struct {
	kind    apperr.Kind
	message string
	fields  []apperr.FieldError
}

// Type is the ErrorTypes value of the failure.
func (r *ErrorsResolver) Type() *string {
	kind := string(r.kind)
	return &kind
}

func (r *ErrorsResolver) Message() *string { return optional(r.message) }

func (r *ErrorsResolver) Errors() *[]*InputFieldErrorResolver {
	if len(r.fields) == 0 {
		return nil
	}
	out := make([]*InputFieldErrorResolver, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, &InputFieldErrorResolver{field: f})
	}
	return &out
}

// InputFieldErrorResolver resolves one InputFieldError.
type InputFieldErrorResolver struct {
	field apperr.FieldError
}

func (r *InputFieldErrorResolver) Field() string { return r.field.Field }
func (r *InputFieldErrorResolver) Message() string { return r.field.Message }

// ClientSuccessResolver resolves the ClientSuccess type.
type ClientSuccessResolver struct {
	client models.Client
	tag    string
}

func (r *ClientSuccessResolver) ID() graphql.ID { return graphql.ID(r.client.ID) }
func (r *ClientSuccessResolver) Email() string { return r.client.Email }
func (r *ClientSuccessResolver) FirstName() string { return r.client.FirstName }
func (r *ClientSuccessResolver) LastName() string { return r.client.LastName }
func (r *ClientSuccessResolver) Status() *string { return optional(string(r.client.Status)) }
func (r *ClientSuccessResolver) Notes() *[]*string { return stringList(r.client.Notes) }
func (r *ClientSuccessResolver) SuccessType() string { return r.tag }

func (r *ClientSuccessResolver) Meetings() *[]*MeetingResolver {
	out := make([]*MeetingResolver, 0, len(r.client.Meetings))
	for i := range r.client.Meetings {
		out = append(out, &MeetingResolver{meeting: r.client.Meetings[i]})
	}
	return &out
}

func (r *ClientSuccessResolver) Project() *ClientProjectResolver {
	if r.client.Project == nil {
		return nil
	}
	return &ClientProjectResolver{project: *r.client.Project}
}

// MeetingResolver resolves the Meeting type.
type MeetingResolver struct {
	meeting models.Meeting
}

func (r *MeetingResolver) Location() *string { return optional(r.meeting.Location) }
func (r *MeetingResolver) URL() *string { return optional(r.meeting.URL) }
func (r *MeetingResolver) Created() *Date { return newDate(r.meeting.Created) }
func (r *MeetingResolver) ScheduledFor() *Date { return newDate(r.meeting.ScheduledFor) }
func (r *MeetingResolver) Notes() *[]*string { return stringList(r.meeting.Notes) }

func (r *MeetingResolver) PrepInfo() *[]*MeetingPrepInfoResolver {
	out := make([]*MeetingPrepInfoResolver, 0, len(r.meeting.PrepInfo))
	for _, p := range r.meeting.PrepInfo {
		out = append(out, &MeetingPrepInfoResolver{info: p})
	}
	return &out
}

// MeetingPrepInfoResolver resolves one booking form answer.
type MeetingPrepInfoResolver struct {
	info models.PrepInfo
}

func (r *MeetingPrepInfoResolver) Question() *string { return &r.info.Question }
func (r *MeetingPrepInfoResolver) Answer() *string { return &r.info.Answer }

// ClientProjectResolver resolves the ClientProject type.
type ClientProjectResolver struct {
	project models.Project
}

func (r *ClientProjectResolver) Title() *string { return optional(r.project.Title) }
func (r *ClientProjectResolver) Domain() *string { return optional(r.project.Domain) }

func (r *ClientProjectResolver) ExternalDependencies() *[]*string {
	return stringList(r.project.ExternalDependencies)
}

func (r *ClientProjectResolver) Phases() *[]*ProjectPhaseResolver {
	out := make([]*ProjectPhaseResolver, 0, len(r.project.Phases))
	for _, p := range r.project.Phases {
		out = append(out, &ProjectPhaseResolver{phase: p})
	}
	return &out
}

// ProjectPhaseResolver resolves the ProjectPhase type.
type ProjectPhaseResolver struct {
	phase models.ProjectPhase
}

func (r *ProjectPhaseResolver) OriginalCostEstimate() *float64 { return r.phase.OriginalCostEstimate }
func (r *ProjectPhaseResolver) UpdatedCostEstimate() *float64 { return r.phase.UpdatedCostEstimate }
func (r *ProjectPhaseResolver) OriginalLaunchDate() *Date { return newDatePtr(r.phase.OriginalLaunchDate) }
func (r *ProjectPhaseResolver) UpdatedLaunchDate() *Date { return newDatePtr(r.phase.UpdatedLaunchDate) }
func (r *ProjectPhaseResolver) Status() *string { return optional(r.phase.Status) }
func (r *ProjectPhaseResolver) Notes() *[]*string { return stringList(r.phase.Notes) }
func (r *ProjectPhaseResolver) AmountPaid() *float64 { return &r.phase.AmountPaid }

func (r *ProjectPhaseResolver) HoursLogged() *[]*LoggedHoursResolver {
	out := make([]*LoggedHoursResolver, 0, len(r.phase.HoursLogged))
	for _, h := range r.phase.HoursLogged {
		out = append(out, &LoggedHoursResolver{entry: h})
	}
	return &out
}

// LoggedHoursResolver resolves one LoggedHours entry.
type LoggedHoursResolver struct {
	entry models.LoggedHours
}

func (r *LoggedHoursResolver) Date() *Date { return newDate(r.entry.Date) }
func (r *LoggedHoursResolver) Hours() *float64 { return &r.entry.Hours }
func (r *LoggedHoursResolver) Developer() *string { return optional(r.entry.Developer) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringList(values []string) *[]*string {
	out := make([]*string, 0, len(values))
	for i := range values {
		out = append(out, &values[i])
	}
	return &out
}
