package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/campaign/internal/bulk"
	db "github.com/JonMunkholm/campaign/internal/database"
)

// DBRegistrar registers voters through the register_voter database function.
type DBRegistrar struct {
	q *db.Queries
}

// NewDBRegistrar creates a registrar over conn.
func NewDBRegistrar(conn db.DBTX) *DBRegistrar {
	return &DBRegistrar{q: db.New(conn)}
}

// CreateVoter implements bulk.Registrar. Business rejections come back as
// CreateResult{Success: false}; only query failures return an error.
func (r *DBRegistrar) CreateVoter(ctx context.Context, rec bulk.VoterRecord) (bulk.CreateResult, error) {
	res, err := r.q.RegisterVoter(ctx, db.RegisterVoterParams{
		Ci:           rec.Identifier,
		Nombre:       rec.GivenName,
		Apellido:     rec.FamilyName,
		Telefono:     rec.Contact,
		Sexo:         rec.Sex,
		Edad:         int32(rec.Age),
		Barrio:       rec.Locality,
		LiderID:      rec.LeaderID,
		RegisteredBy: rec.RegisteredBy,
	})
	if err != nil {
		return bulk.CreateResult{}, err
	}
	if !res.Success {
		return bulk.CreateResult{Success: false, Error: res.Error}, nil
	}
	return bulk.CreateResult{Success: true, Voter: savedVoter(res.Data)}, nil
}

func savedVoter(d *db.RegisterVoterData) *bulk.SavedVoter {
	if d == nil {
		return nil
	}
	return &bulk.SavedVoter{
		ID:           d.ID,
		Identifier:   d.Ci,
		GivenName:    d.Nombre,
		FamilyName:   d.Apellido,
		Contact:      deref(d.Telefono),
		Sex:          deref(d.Sexo),
		Age:          int(derefInt(d.Edad)),
		Locality:     deref(d.Barrio),
		LeaderID:     deref(d.LiderID),
		RegisteredBy: deref(d.RegisteredBy),
		CreatedAt:    d.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}

// instrumentedRegistrar records latency and outcome metrics and logs the
// technical error of every failed call.
type instrumentedRegistrar struct {
	next bulk.Registrar
}

// Instrument wraps r with metrics and error logging.
func Instrument(r bulk.Registrar) bulk.Registrar {
	return instrumentedRegistrar{next: r}
}

func (r instrumentedRegistrar) CreateVoter(ctx context.Context, rec bulk.VoterRecord) (bulk.CreateResult, error) {
	start := time.Now()
	res, err := r.next.CreateVoter(ctx, rec)
	registrationDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		registrationsTotal.WithLabelValues(string(bulk.OutcomeFault)).Inc()
		slog.Error("voter registration failed",
			"identifier", rec.Identifier,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	case !res.Success:
		registrationsTotal.WithLabelValues(string(bulk.OutcomeRejected)).Inc()
	default:
		registrationsTotal.WithLabelValues(string(bulk.OutcomeSuccess)).Inc()
	}
	return res, err
}
