// Copyright 2025 The pgr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


//go:build integration

package config_test

import (
	"context"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/consul"

	"pgr.dev/config"
)

type ConsulSettingsSuite struct {
	suite.Suite
	container *consul.ConsulContainer
	client    *api.Client
}

func (s *ConsulSettingsSuite) SetupSuite() {
	ctx := context.Background()

	container, err := consul.Run(ctx, "hashicorp/consul:1.15", testcontainers.WithLogger(log.TestLogger(s.T())))
	s.Require().NoError(err)
	s.container = container

	endpoint, err := container.ApiEndpoint(ctx)
	s.Require().NoError(err)
	s.T().Setenv("CONSUL_HTTP_ADDR", endpoint)

	cfg := api.DefaultConfig()
	cfg.Address = endpoint
	s.client, err = api.NewClient(cfg)
	s.Require().NoError(err)
}

func (s *ConsulSettingsSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func TestConsulSettingsSuite(t *testing.T) {
	suite.Run(t, new(ConsulSettingsSuite))
}

func (s *ConsulSettingsSuite) TestConsulOverridesDefaults() {
	_, err := s.client.KV().Put(&api.KVPair{
		Key:   config.DefaultConsulKey,
		Value: []byte("database:\n  dsn: postgres://consul/app\n  schema: api\nrouting:\n  verb_case: lower\n"),
	}, nil)
	s.Require().NoError(err)

	s.T().Setenv("PGR_DATABASE__SCHEMA", "env")

	settings, _, err := config.LoadSettings(context.Background(), "")
	s.Require().NoError(err)
	s.Equal("postgres://consul/app", settings.Database.DSN)
	s.Equal("env", settings.Database.Schema)
	s.Equal("lower", settings.Routing.VerbCase)
}

func (s *ConsulSettingsSuite) TestMissingKeyIsEmpty() {
	s.T().Setenv("CONSUL_PGR_KEY", "pgr/absent")
	s.T().Setenv("PGR_DATABASE__DSN", "postgres://env/app")

	settings, _, err := config.LoadSettings(context.Background(), "")
	s.Require().NoError(err)
	s.Equal("pgr", settings.Database.Schema)
}
