package csql

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/sqlbase/core/query"
)

// PostgresTestSuite runs the executor against a real postgres started with testcontainers.
// It requires docker and is enabled with SQLBASE_INTEGRATION=1.
type PostgresTestSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *DB
}

func TestPostgresTestSuite(t *testing.T) {
	if os.Getenv("SQLBASE_INTEGRATION") == "" {
		t.Skip("set SQLBASE_INTEGRATION=1 to run postgres integration tests")
	}
	suite.Run(t, &PostgresTestSuite{})
}

func (s *PostgresTestSuite) SetupSuite() {
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.container = pgC

	host, err := pgC.Host(ctx)
	s.Require().NoError(err)
	port, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	s.db = OpenWithSchema(fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		host, port.Port()), "_sqlbase_test_")
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.ClearSchema()
		s.db.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresTestSuite) SetupTest() {
	s.db.ClearSchema()
	_, err := s.db.Exec(`CREATE TABLE _sqlbase_test_.users (
id SERIAL PRIMARY KEY,
username VARCHAR NOT NULL UNIQUE,
password VARCHAR NOT NULL);`)
	s.Require().NoError(err)
}

func (s *PostgresTestSuite) TestCatalogReflection() {
	table, err := s.db.Resolver().Resolve(context.Background(), query.TableName("users"), "")
	s.Require().NoError(err)
	s.Equal([]string{"id", "username", "password"}, table.Columns)
	s.Equal("id", table.PrimaryKey)

	_, err = s.db.Resolver().Resolve(context.Background(), query.TableName("nowhere"), "")
	s.ErrorIs(err, query.ErrInvalidInput)
}

func (s *PostgresTestSuite) TestRoundTrip() {
	ctx := context.Background()
	r := s.db.Resolver()

	ins, _, err := r.Insert(ctx, query.TableName("users"), "")
	s.Require().NoError(err)
	res, err := s.db.Execute(ctx, ins.Set("username", "jane").Set("password", "hash"))
	s.Require().NoError(err)
	s.Equal(int64(1), res.Values["id"])

	sel, _, err := r.Select(ctx, query.TableName("users"), "", "username", "password")
	s.Require().NoError(err)
	res, err = s.db.Execute(ctx, sel.WhereEq("id", res.Values["id"]))
	s.Require().NoError(err)
	s.Equal(Row{"username": "jane", "password": "hash"}, res.Value())

	dup, _, err := r.Insert(ctx, query.TableName("users"), "")
	s.Require().NoError(err)
	_, err = s.db.Execute(ctx, dup.Set("username", "jane").Set("password", "other"))
	s.True(IsUniqueViolation(err))

	sel, _, err = r.Select(ctx, query.TableName("users"), "")
	s.Require().NoError(err)
	_, err = s.db.Execute(ctx, sel.WhereEq("id", "not a number"))
	s.True(IsInvalidTextRepresentation(err))

	now, err := s.db.Execute(ctx, s.db.NowQuery())
	s.Require().NoError(err)
	s.Len(now.Rows, 1)
}

func (s *PostgresTestSuite) TestPaginate() {
	ctx := context.Background()
	r := s.db.Resolver()
	for i := 0; i < 7; i++ {
		ins, _, err := r.Insert(ctx, query.TableName("users"), "")
		s.Require().NoError(err)
		_, err = s.db.Execute(ctx, ins.Set("username", fmt.Sprintf("user%d", i)).Set("password", "x"))
		s.Require().NoError(err)
	}
	sel, _, err := r.Select(ctx, query.TableName("users"), "", "id", "username")
	s.Require().NoError(err)
	page, err := s.db.Paginate(ctx, sel, 3, 3)
	s.Require().NoError(err)
	s.Equal(int64(7), page.TotalItems)
	s.Equal(int64(3), page.TotalPages)
	s.Len(page.Items, 1)
}

func (s *PostgresTestSuite) TestJoinMixedCaseColumns() {
	ctx := context.Background()
	_, err := s.db.Exec(`CREATE TABLE _sqlbase_test_.country (
"Code" CHAR(3) PRIMARY KEY,
"Name" VARCHAR NOT NULL,
"HeadOfState" VARCHAR);
CREATE TABLE _sqlbase_test_.city (
id SERIAL PRIMARY KEY,
name VARCHAR NOT NULL,
countrycode CHAR(3) NOT NULL);
INSERT INTO _sqlbase_test_.country VALUES ('MEX', 'Mexico', 'Claudia Sheinbaum');
INSERT INTO _sqlbase_test_.city (name, countrycode) VALUES ('Puebla', 'MEX'), ('Tijuana', 'MEX');`)
	s.Require().NoError(err)

	r := s.db.Resolver()
	sel, tables, err := r.Join(ctx, "country c",
		[]string{"c.Name AS CountryName", "c.HeadOfState", "c2.Name AS CityName"},
		query.JoinConfig{Tables: []query.JoinSpec{
			{Table: "City c2", OnClause: "c.Code = c2.CountryCode", Type: query.JoinInner},
		}}, "")
	s.Require().NoError(err)
	c2, ok := tables.Get("c2")
	s.Require().True(ok)
	name, err := c2.Column("Name")
	s.Require().NoError(err)

	res, err := s.db.Execute(ctx, sel.OrderBy(name))
	s.Require().NoError(err)
	s.Equal([]Row{
		{"CountryName": "Mexico", "HeadOfState": "Claudia Sheinbaum", "CityName": "Puebla"},
		{"CountryName": "Mexico", "HeadOfState": "Claudia Sheinbaum", "CityName": "Tijuana"},
	}, res.Rows)

	// an unquoted lower case name does not refer to a quoted mixed case column
	_, _, err = r.Join(ctx, "country c", []string{"c.name"}, query.JoinConfig{}, "")
	s.ErrorIs(err, query.ErrInvalidInput)
}
