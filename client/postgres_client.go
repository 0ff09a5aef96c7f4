package client

import (
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// PostgresClient records publish history. It is optional: one-shot CLI runs
// inside CI usually have no database configured, in which case
// InitializePostgresClient returns nil and history is skipped.
type PostgresClient struct {
	db   *sqlx.DB
	conf *viper.Viper
}

func InitializePostgresClient(conf *viper.Viper) (*PostgresClient, error) {
	dburl := conf.GetString("database_url")
	if dburl == "" {
		return nil, nil
	}

	client := PostgresClient{
		conf: conf,
	}

	var err error
	if client.db, err = sqlx.Open("postgres", dburl); err != nil {
		return nil, errors.Wrap(err, "unable to open postgres db")
	}

	// Since this happens at initialization we could encounter racy
	// conditions waiting for pg to become available. Wait for it a bit
	if err = client.db.Ping(); err != nil {
		// Try 3 more times
		// 5, 10, 20
		for i := 0; i < 3 && err != nil; i++ {
			time.Sleep(time.Duration(5*math.Pow(2, float64(i))) * time.Second)
			err = client.db.Ping()
		}
		if err != nil {
			return nil, errors.Wrap(err, "error trying to connect to postgres db, retries exhausted")
		}
	}

	if err = client.createTables(); err != nil {
		return nil, errors.Wrap(err, "problem executing create tables sql")
	}

	return &client, nil
}

func (client *PostgresClient) createTables() error {
	_, err := client.db.Exec(CreateTablesSQL)
	return err
}

type PublishedImageTagRow struct {
	ID             int       `json:"id" db:"id"`
	RepositoryName string    `json:"repository_name" db:"repository_name"`
	Tag            string    `json:"tag" db:"tag"`
	Marker         string    `json:"marker" db:"marker"`
	Digest         string    `json:"digest" db:"digest"`
	PublishedAt    time.Time `json:"published_at" db:"published_at"`
}

func (client *PostgresClient) InsertPublication(repoName, tag, marker, digest string) error {
	tx, err := client.db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err = tx.Exec(InsertPublicationSQL,
		repoName, tag, marker, digest); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "issue recording publication of %s:%s", repoName, tag)
	}

	if err = tx.Commit(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (client *PostgresClient) GetPublications(repoName string, limit int) ([]PublishedImageTagRow, error) {
	var rows []PublishedImageTagRow
	sqlStatement := `
          SELECT * FROM published_image_tag WHERE repository_name = $1
          ORDER BY published_at DESC LIMIT $2;`
	err := client.db.Select(&rows, sqlStatement, repoName, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "issue getting publications with repoName [%s]", repoName)
	}
	return rows, nil
}

func (client *PostgresClient) GetAllPublications(limit int) ([]PublishedImageTagRow, error) {
	var rows []PublishedImageTagRow
	sqlStatement := `
          SELECT * FROM published_image_tag ORDER BY published_at DESC LIMIT $1;`
	err := client.db.Select(&rows, sqlStatement, limit)
	if err != nil {
		return nil, errors.Wrap(err, "issue getting publications")
	}
	return rows, nil
}

const InsertPublicationSQL = `
INSERT INTO published_image_tag
  (repository_name, tag, marker, digest) VALUES ($1, $2, $3, $4);`

const CreateTablesSQL = `
CREATE TABLE IF NOT EXISTS published_image_tag (
  id serial PRIMARY KEY,
  repository_name character varying NOT NULL,
  tag character varying NOT NULL,
  marker character varying NOT NULL default '',
  digest character varying NOT NULL default '',
  published_at timestamp with time zone NOT NULL default now()
);`
