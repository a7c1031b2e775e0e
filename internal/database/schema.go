package database

import (
	"context"
	"fmt"
)

// schemaStatements create every table, index and function the service uses.
// Each statement is idempotent so Migrate can run on every deploy.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS lideres (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		ci          text,
		nombre      text NOT NULL,
		apellido    text NOT NULL,
		telefono    text,
		candidato   text NOT NULL,
		activo      boolean NOT NULL DEFAULT true,
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS lideres_activo_idx ON lideres (candidato, nombre) WHERE activo`,

	`CREATE TABLE IF NOT EXISTS votantes (
		id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		ci             text NOT NULL UNIQUE,
		nombre         text NOT NULL,
		apellido       text NOT NULL,
		telefono       text,
		sexo           text,
		edad           integer,
		barrio         text,
		lider_id       uuid REFERENCES lideres (id),
		registered_by  text,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now(),
		updated_by     text
	)`,
	`CREATE INDEX IF NOT EXISTS votantes_lider_idx ON votantes (lider_id)`,

	`CREATE TABLE IF NOT EXISTS staff (
		id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		email          text NOT NULL UNIQUE,
		name           text NOT NULL,
		password_hash  text NOT NULL,
		active         boolean NOT NULL DEFAULT true,
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		action         text NOT NULL,
		severity       text NOT NULL,
		grid_id        uuid,
		row_id         integer,
		identifier     text,
		actor          text,
		ip_address     inet,
		user_agent     text,
		reason         text,
		rows_affected  integer,
		run_id         uuid,
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_log_created_idx ON audit_log (created_at)`,
	`CREATE INDEX IF NOT EXISTS audit_log_run_idx ON audit_log (run_id) WHERE run_id IS NOT NULL`,

	// register_voter never raises for business rejections: it answers
	// {success:false, error} so callers can tell a rejection from a failure.
	`CREATE OR REPLACE FUNCTION register_voter(
		p_ci            text,
		p_nombre        text,
		p_apellido      text,
		p_telefono      text,
		p_sexo          text,
		p_edad          integer,
		p_barrio        text,
		p_lider_id      text,
		p_registered_by text
	) RETURNS jsonb
	LANGUAGE plpgsql AS $$
	DECLARE
		v_lider uuid;
		v_row   votantes%ROWTYPE;
	BEGIN
		SELECT id INTO v_lider FROM lideres WHERE id::text = p_lider_id AND activo;
		IF v_lider IS NULL THEN
			RETURN jsonb_build_object('success', false, 'error', 'leader not found or inactive');
		END IF;

		IF EXISTS (SELECT 1 FROM votantes WHERE ci = p_ci) THEN
			RETURN jsonb_build_object('success', false,
				'error', format('a voter with CI %s is already registered', p_ci));
		END IF;

		INSERT INTO votantes (ci, nombre, apellido, telefono, sexo, edad, barrio, lider_id, registered_by, updated_by)
		VALUES (p_ci, p_nombre, p_apellido, p_telefono, p_sexo, p_edad, p_barrio, v_lider, p_registered_by, p_registered_by)
		RETURNING * INTO v_row;

		RETURN jsonb_build_object('success', true, 'data', to_jsonb(v_row));
	EXCEPTION
		WHEN unique_violation THEN
			RETURN jsonb_build_object('success', false,
				'error', format('a voter with CI %s is already registered', p_ci));
	END;
	$$`,
}

// Migrate applies the schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
