package graph_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/isdelr/intake-api/internal/auth"
	"github.com/isdelr/intake-api/internal/database"
	"github.com/isdelr/intake-api/internal/graph"
	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/isdelr/intake-api/internal/scheduling"
	"github.com/isdelr/intake-api/internal/services"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	event   scheduling.Event
	invitee scheduling.Invitee
}

func (p stubProvider) FetchBooking(context.Context, string, string) (scheduling.Event, scheduling.Invitee, error) {
	return p.event, p.invitee, nil
}

type discardSender struct{}

func (discardSender) Send(context.Context, mailer.Message) error { return nil }

type harness struct {
	schema  *graphql.Schema
	clients *services.ClientService
	users   *services.UserService
}

func newHarness(t *testing.T) harness {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	provider := stubProvider{
		event: scheduling.Event{
			StartTime: "2024-03-10T15:00:00Z",
			CreatedAt: "2024-03-01T09:00:00Z",
			Location:  scheduling.Location{Type: "zoom", JoinURL: "https://zoom.example/j/1"},
		},
		invitee: scheduling.Invitee{Email: "a@x.com", FirstName: "Ada", LastName: "Lovelace"},
	}
	h := harness{
		clients: services.NewClientService(store.NewSQLiteClientRepository(db), provider, discardSender{}, nil, time.UTC),
		users:   services.NewUserService(store.NewSQLiteUserRepository(db), auth.NewTokenManager("graph-secret", time.Hour), discardSender{}),
	}
	t.Cleanup(h.clients.WaitForNotifications)
	t.Cleanup(h.users.WaitForNotifications)

	h.schema, err = graph.NewSchema(graph.NewResolver(h.clients, h.users))
	require.NoError(t, err)
	return h
}

// exec runs query and decodes the data into out. GraphQL-level errors fail the test.
func (h harness) exec(t *testing.T, ctx context.Context, query string, vars map[string]interface{}, out interface{}) {
	t.Helper()
	resp := h.schema.Exec(ctx, query, "", vars)
	require.Empty(t, resp.Errors)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

type errorsShape struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type userShape struct {
	Typename    string `json:"__typename"`
	ID          string `json:"_id"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	SuccessType string `json:"successType"`
	errorsShape
}

const userFields = `__typename
	... on UserSuccess { _id email token successType }
	... on Errors { type message errors { field message } }`

const registerMutation = `mutation($email: String!) {
	register(email: $email, password: "hunter22", firstName: "Grace", lastName: "Hopper") {` + userFields + `}
}`

func TestRegisterAndLoggedInUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var reg struct{ Register userShape }
	h.exec(t, ctx, registerMutation, map[string]interface{}{"email": "g@x.com"}, &reg)
	assert.Equal(t, "UserSuccess", reg.Register.Typename)
	assert.Equal(t, "registered", reg.Register.SuccessType)
	require.NotEmpty(t, reg.Register.Token)

	var again struct{ Register userShape }
	h.exec(t, ctx, registerMutation, map[string]interface{}{"email": "g@x.com"}, &again)
	assert.Equal(t, "Errors", again.Register.Typename)
	assert.Equal(t, "emailInUse", again.Register.Type)

	query := `{ getLoggedInUser {` + userFields + `} }`

	var anonymous struct{ GetLoggedInUser userShape }
	h.exec(t, ctx, query, nil, &anonymous)
	assert.Equal(t, "invalidToken", anonymous.GetLoggedInUser.Type)

	var me struct{ GetLoggedInUser userShape }
	h.exec(t, auth.WithToken(ctx, reg.Register.Token), query, nil, &me)
	assert.Equal(t, "UserSuccess", me.GetLoggedInUser.Typename)
	assert.Equal(t, "loggedIn", me.GetLoggedInUser.SuccessType)
	assert.Equal(t, "g@x.com", me.GetLoggedInUser.Email)
	assert.Equal(t, reg.Register.ID, me.GetLoggedInUser.ID)
}

func TestUserQueriesReturnErrorsVariant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var all struct{ GetAllUsers []userShape }
	h.exec(t, ctx, `{ getAllUsers {`+userFields+`} }`, nil, &all)
	require.Len(t, all.GetAllUsers, 1)
	assert.Equal(t, "Errors", all.GetAllUsers[0].Typename)
	assert.Equal(t, "noUsersFound", all.GetAllUsers[0].Type)

	var one struct{ GetUser userShape }
	h.exec(t, ctx, `{ getUser(email: "nobody@x.com") {`+userFields+`} }`, nil, &one)
	assert.Equal(t, "userNotFound", one.GetUser.Type)
	require.Len(t, one.GetUser.Errors, 1)
	assert.Equal(t, "user", one.GetUser.Errors[0].Field)

	var reg struct{ Register userShape }
	h.exec(t, ctx, registerMutation, map[string]interface{}{"email": "g@x.com"}, &reg)

	h.exec(t, ctx, `{ getAllUsers {`+userFields+`} }`, nil, &all)
	require.Len(t, all.GetAllUsers, 1)
	assert.Equal(t, "allUsersFetched", all.GetAllUsers[0].SuccessType)
	assert.Empty(t, all.GetAllUsers[0].Token)
}

type clientShape struct {
	Typename    string `json:"__typename"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	SuccessType string `json:"successType"`
	Meetings    []struct {
		Location     string `json:"location"`
		ScheduledFor string `json:"scheduledFor"`
	} `json:"meetings"`
	Project *struct {
		Title  string `json:"title"`
		Phases []struct {
			OriginalCostEstimate *float64 `json:"originalCostEstimate"`
			HoursLogged          []struct {
				Hours     float64 `json:"hours"`
				Developer string  `json:"developer"`
			} `json:"hoursLogged"`
		} `json:"phases"`
	} `json:"project"`
	errorsShape
}

const clientFields = `__typename
	... on ClientSuccess {
		email status successType
		meetings { location scheduledFor }
		project { title phases { originalCostEstimate hoursLogged { hours developer } } }
	}
	... on Errors { type message errors { field message } }`

func TestAddNewClientAndQueries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	add := `mutation { addNewClient(eventUri: "https://api.example/ev", inviteeUri: "https://api.example/inv") {` + clientFields + `} }`

	var first struct{ AddNewClient clientShape }
	h.exec(t, ctx, add, nil, &first)
	assert.Equal(t, "ClientSuccess", first.AddNewClient.Typename)
	assert.Equal(t, "clientAdded", first.AddNewClient.SuccessType)
	assert.Equal(t, "a@x.com", first.AddNewClient.Email)
	assert.Equal(t, "Phase 1: Information Gathering", first.AddNewClient.Status)
	require.Len(t, first.AddNewClient.Meetings, 1)
	assert.Equal(t, "zoom", first.AddNewClient.Meetings[0].Location)
	assert.Equal(t, "2024-03-10T15:00:00Z", first.AddNewClient.Meetings[0].ScheduledFor)

	var second struct{ AddNewClient clientShape }
	h.exec(t, ctx, add, nil, &second)
	assert.Equal(t, "clientUpdated", second.AddNewClient.SuccessType)
	assert.Len(t, second.AddNewClient.Meetings, 2)

	var all struct{ GetAllClients []clientShape }
	h.exec(t, ctx, `{ getAllClients {`+clientFields+`} }`, nil, &all)
	require.Len(t, all.GetAllClients, 1)
	assert.Equal(t, "allClientsFetched", all.GetAllClients[0].SuccessType)

	var missing struct{ GetClient clientShape }
	h.exec(t, ctx, `{ getClient(email: "nobody@x.com") {`+clientFields+`} }`, nil, &missing)
	assert.Equal(t, "clientNotFound", missing.GetClient.Type)
}

func TestEditClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.clients.AddNewClient(ctx, "ev", "inv")
	require.NoError(t, err)
	_, token, err := h.users.Register(ctx, services.RegisterInput{Email: "dev@x.com", Password: "hunter22"})
	require.NoError(t, err)
	authed := auth.WithToken(ctx, token)

	edit := `mutation($status: String, $project: ProjectFields) {
		editClient(email: "a@x.com", status: $status, originalCostEstimate: 1500.5, project: $project) {` + clientFields + `}
	}`

	var anonymous struct{ EditClient clientShape }
	h.exec(t, ctx, edit, nil, &anonymous)
	assert.Equal(t, "invalidToken", anonymous.EditClient.Type)

	var invalid struct{ EditClient clientShape }
	h.exec(t, authed, edit, map[string]interface{}{"status": "Phase 7: Retired"}, &invalid)
	assert.Equal(t, "badInput", invalid.EditClient.Type)
	require.Len(t, invalid.EditClient.Errors, 1)
	assert.Equal(t, "status", invalid.EditClient.Errors[0].Field)

	var ok struct{ EditClient clientShape }
	h.exec(t, authed, edit, map[string]interface{}{
		"status": "Phase 3: Initial Development",
		"project": map[string]interface{}{
			"title":              "Portal",
			"hoursLogged":        3.5,
			"originalLaunchDate": "2024-06-01",
		},
	}, &ok)
	assert.Equal(t, "clientUpdated", ok.EditClient.SuccessType)
	assert.Equal(t, "Phase 3: Initial Development", ok.EditClient.Status)
	require.NotNil(t, ok.EditClient.Project)
	assert.Equal(t, "Portal", ok.EditClient.Project.Title)
	require.Len(t, ok.EditClient.Project.Phases, 1)
	phase := ok.EditClient.Project.Phases[0]
	require.NotNil(t, phase.OriginalCostEstimate)
	assert.Equal(t, 1500.5, *phase.OriginalCostEstimate)
	require.Len(t, phase.HoursLogged, 1)
	assert.Equal(t, "dev@x.com", phase.HoursLogged[0].Developer)
}
