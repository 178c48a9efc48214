package aws

import (
	"context"
	"testing"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
	if cfg.BaseEndpoint != nil {
		t.Fatalf("expected no endpoint override, got %s", *cfg.BaseEndpoint)
	}
}

func TestLoadAWSConfig_EndpointOverride(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseEndpoint == nil || *cfg.BaseEndpoint != "http://localhost:4566" {
		t.Fatalf("endpoint override not applied: %v", cfg.BaseEndpoint)
	}
}

func TestLoadAWSConfig_ExplicitRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Fatalf("region mismatch, got %s", cfg.Region)
	}
}
