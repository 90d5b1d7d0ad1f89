// Command seed loads sample consultants and clients through the user usecase.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"consultant-dashboard/cmd/api/app"
	"consultant-dashboard/cmd/api/di"
	"consultant-dashboard/internal/usecase/user"
	apperrors "consultant-dashboard/pkg/errors"
)

type sample struct {
	req        user.CreateUserRequest
	consultant string
}

func ptr[T any](v T) *T { return &v }

var consultants = []user.CreateUserRequest{
	{
		Name: "Maria Silva", Email: "maria.silva@consultant.com", Phone: "+55 11 98765-4321",
		Age: ptr(35), CPF: "123.456.789-01", CEP: "01310-100",
		Address: "Av. Paulista, 1578", Complement: ptr("Conjunto 405"), Type: "CONSULTANT",
	},
	{
		Name: "João Santos", Email: "joao.santos@consultant.com", Phone: "+55 11 97654-3210",
		Age: ptr(42), CPF: "987.654.321-09", CEP: "04543-907",
		Address: "Av. Brigadeiro Faria Lima, 2232", Complement: ptr("Sala 1201"), Type: "CONSULTANT",
	},
}

// Clients reference consultants by email; an empty consultant leaves the client unassigned.
var clients = []sample{
	{consultant: "maria.silva@consultant.com", req: user.CreateUserRequest{
		Name: "Ana Costa", Email: "ana.costa@email.com", Phone: "+55 11 91234-5678",
		Age: ptr(28), CPF: "111.222.333-44", CEP: "05402-000", Address: "Rua dos Pinheiros, 498",
	}},
	{consultant: "maria.silva@consultant.com", req: user.CreateUserRequest{
		Name: "Carlos Oliveira", Email: "carlos.oliveira@email.com", Phone: "+55 11 93456-7890",
		Age: ptr(45), CPF: "222.333.444-55", CEP: "01452-000", Address: "Rua Augusta, 2690",
		Complement: ptr("Apto 302"),
	}},
	{consultant: "joao.santos@consultant.com", req: user.CreateUserRequest{
		Name: "Patricia Ferreira", Email: "patricia.ferreira@email.com", Phone: "+55 11 94567-8901",
		CPF: "333.444.555-66", CEP: "04551-060", Address: "Av. Juscelino Kubitschek, 1830",
	}},
	{consultant: "joao.santos@consultant.com", req: user.CreateUserRequest{
		Name: "Roberto Almeida", Email: "roberto.almeida@email.com", Phone: "+55 11 95678-9012",
		Age: ptr(38), CPF: "444.555.666-77", CEP: "01419-001", Address: "Rua Haddock Lobo, 595",
		Complement: ptr("Conjunto 81"),
	}},
	{req: user.CreateUserRequest{
		Name: "Fernanda Lima", Email: "fernanda.lima@email.com", Phone: "+55 11 96789-0123",
		Age: ptr(31), CPF: "555.666.777-88", CEP: "05426-200", Address: "Rua Teodoro Sampaio, 2767",
	}},
}

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	c, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			l.Error("failed to close container", zap.Error(err))
		}
	}()

	if err := seed(ctx, c.UserUC, l); err != nil {
		return err
	}
	l.Info("seed completed")
	return nil
}

func seed(ctx context.Context, uc user.Usecase, l *zap.Logger) error {
	ids := make(map[string]string, len(consultants))

	for _, req := range consultants {
		u, err := create(ctx, uc, l, req)
		if err != nil {
			return err
		}
		if u != nil {
			ids[req.Email] = u.ID
		}
	}

	// Consultants created by an earlier run are looked up again.
	if len(ids) < len(consultants) {
		existing, err := uc.ListConsultants(ctx)
		if err != nil {
			return err
		}
		for _, u := range existing {
			ids[u.Email] = u.ID
		}
	}

	for _, s := range clients {
		req := s.req
		req.Type = "CLIENT"
		if s.consultant != "" {
			id, ok := ids[s.consultant]
			if !ok {
				l.Warn("consultant missing, client left unassigned", zap.String("consultant", s.consultant))
			} else {
				req.ConsultantID = ptr(id)
			}
		}
		if _, err := create(ctx, uc, l, req); err != nil {
			return err
		}
	}
	return nil
}

// create returns nil without error when the email is already taken.
func create(ctx context.Context, uc user.Usecase, l *zap.Logger, req user.CreateUserRequest) (*user.User, error) {
	u, err := uc.CreateUser(ctx, req)
	if err != nil {
		var conflict *apperrors.AlreadyExistsError
		if errors.As(err, &conflict) {
			l.Info("user already seeded", zap.String("email", req.Email))
			return nil, nil
		}
		return nil, err
	}
	l.Info("created user", zap.String("name", u.Name), zap.String("type", u.Type))
	return u, nil
}
