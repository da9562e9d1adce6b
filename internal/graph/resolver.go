package graph

import (
	"context"

	"github.com/isdelr/intake-api/internal/auth"
	"github.com/isdelr/intake-api/internal/services"
)

// Resolver is the root resolver for both Query and Mutation. Every field returns a
// union value; domain failures never surface as GraphQL errors.
type Resolver struct {
	clients services.ClientServiceProvider
	users   services.UserServiceProvider
}

// NewResolver creates a new Resolver.
func NewResolver(clients services.ClientServiceProvider, users services.UserServiceProvider) *Resolver {
	return &Resolver{clients: clients, users: users}
}

// GetUser resolves the getUser query.
func (r *Resolver) GetUser(ctx context.Context, args struct{ Email string }) *UserResponseResolver {
	user, err := r.users.GetUser(ctx, args.Email)
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, FetchedUser, "")
}

// GetAllUsers resolves the getAllUsers query.
func (r *Resolver) GetAllUsers(ctx context.Context) *[]*UserResponseResolver {
	users, err := r.users.GetAllUsers(ctx)
	if err != nil {
		return userErrorList(err)
	}
	return userSuccessList(users, AllUsersFetched)
}

// GetLoggedInUser returns the user identified by the request token.
func (r *Resolver) GetLoggedInUser(ctx context.Context) *UserResponseResolver {
	user, err := r.users.GetLoggedInUser(ctx, auth.TokenFromContext(ctx))
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, LoggedIn, "")
}

// GetAllClients resolves the getAllClients query.
func (r *Resolver) GetAllClients(ctx context.Context) *[]*ClientResponseResolver {
	clients, err := r.clients.GetAllClients(ctx)
	if err != nil {
		return clientErrorList(err)
	}
	return clientSuccessList(clients, AllClientsFetched)
}

// GetClient resolves the getClient query.
func (r *Resolver) GetClient(ctx context.Context, args struct{ Email string }) *ClientResponseResolver {
	client, err := r.clients.GetClient(ctx, args.Email)
	if err != nil {
		return clientError(err)
	}
	return clientSuccess(client, ClientFetched)
}

type registerArgs struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account and signs the new user in.
func (r *Resolver) Register(ctx context.Context, args registerArgs) *UserResponseResolver {
	user, token, err := r.users.Register(ctx, services.RegisterInput{
		Email:     args.Email,
		Password:  args.Password,
		FirstName: args.FirstName,
		LastName:  args.LastName,
	})
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, Registered, token)
}

// Login exchanges credentials for an auth token.
func (r *Resolver) Login(ctx context.Context, args struct{ Email, Password string }) *UserResponseResolver {
	user, token, err := r.users.Login(ctx, args.Email, args.Password)
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, LoggedIn, token)
}

type updateUserArgs struct {
	FirstName *string
	LastName  *string
	Email     string
}

// UpdateUser edits the caller's own profile.
func (r *Resolver) UpdateUser(ctx context.Context, args updateUserArgs) *UserResponseResolver {
	user, err := r.users.UpdateUser(ctx, auth.TokenFromContext(ctx), services.UpdateUserInput{
		Email:     args.Email,
		FirstName: args.FirstName,
		LastName:  args.LastName,
	})
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, UserUpdated, "")
}

type updatePasswordArgs struct {
	Email       string
	NewPassword string
	Token       string
}

// UpdatePassword redeems an emailed reset token for a new password.
func (r *Resolver) UpdatePassword(ctx context.Context, args updatePasswordArgs) *UserResponseResolver {
	user, token, err := r.users.UpdatePassword(ctx, args.Email, args.NewPassword, args.Token)
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, PasswordUpdated, token)
}

// DeleteUser removes a user and returns the remaining ones.
func (r *Resolver) DeleteUser(ctx context.Context, args struct{ ID string }) *[]*UserResponseResolver {
	users, err := r.users.DeleteUser(ctx, auth.TokenFromContext(ctx), args.ID)
	if err != nil {
		return userErrorList(err)
	}
	return userSuccessList(users, AllUsersFetched)
}

// SendPasswordResetEmail emails the user a one-time reset token.
func (r *Resolver) SendPasswordResetEmail(ctx context.Context, args struct{ Email string }) *UserResponseResolver {
	user, err := r.users.SendPasswordResetEmail(ctx, args.Email)
	if err != nil {
		return userError(err)
	}
	return userSuccess(user, PasswordResetEmailSent, "")
}

type addNewClientArgs struct {
	EventURI   string
	InviteeURI string
}

// AddNewClient runs intake for a booking made with the scheduling provider.
func (r *Resolver) AddNewClient(ctx context.Context, args addNewClientArgs) *ClientResponseResolver {
	result, err := r.clients.AddNewClient(ctx, args.EventURI, args.InviteeURI)
	if err != nil {
		return clientError(err)
	}
	if result.Created {
		return clientSuccess(result.Client, ClientAdded)
	}
	return clientSuccess(result.Client, ClientUpdated)
}

// ProjectFields is the ProjectFields input type.
type ProjectFields struct {
	Title                *string
	Domain               *string
	ExternalDependencies *[]*string
	HoursLogged          *float64
	Notes                *string
	OriginalLaunchDate   *Date
	UpdatedLaunchDate    *Date
}

type editClientArgs struct {
	Email                string
	Status               *string
	OriginalCostEstimate *float64
	UpdatedCostEstimate  *float64
	Project              *ProjectFields
}

// EditClient requires a signed-in user, who is recorded as the developer on logged hours.
func (r *Resolver) EditClient(ctx context.Context, args editClientArgs) *ClientResponseResolver {
	identity, err := r.users.Authenticate(auth.TokenFromContext(ctx))
	if err != nil {
		return clientError(err)
	}

	edit := services.ClientEdit{
		Email:                args.Email,
		Editor:               identity.Email,
		Status:               args.Status,
		OriginalCostEstimate: args.OriginalCostEstimate,
		UpdatedCostEstimate:  args.UpdatedCostEstimate,
	}
	if p := args.Project; p != nil {
		edit.Project = &services.ProjectEdit{
			Title:              p.Title,
			Domain:             p.Domain,
			HoursLogged:        p.HoursLogged,
			Notes:              p.Notes,
			OriginalLaunchDate: p.OriginalLaunchDate.timePtr(),
			UpdatedLaunchDate:  p.UpdatedLaunchDate.timePtr(),
		}
		if p.ExternalDependencies != nil {
			deps := make([]string, 0, len(*p.ExternalDependencies))
			for _, d := range *p.ExternalDependencies {
				if d != nil {
					deps = append(deps, *d)
				}
			}
			edit.Project.ExternalDependencies = &deps
		}
	}

	client, err := r.clients.EditClient(ctx, edit)
	if err != nil {
		return clientError(err)
	}
	return clientSuccess(client, ClientUpdated)
}
