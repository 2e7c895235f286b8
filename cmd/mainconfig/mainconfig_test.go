package mainconfig

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/carefront-intake/internal/config"
)

func TestNeedsAWS(t *testing.T) {
	cases := []struct {
		name string
		cfg  *appconfig.Config
		want bool
	}{
		{"nil", nil, false},
		{"memory gemini", &appconfig.Config{LLMProvider: appconfig.ProviderGemini, PatientStore: appconfig.StoreMemory}, false},
		{"bedrock fallback", &appconfig.Config{LLMProvider: appconfig.ProviderGemini, LLMFallbackProvider: appconfig.ProviderBedrock}, true},
		{"dynamo", &appconfig.Config{PatientStore: appconfig.StoreDynamoDB}, true},
		{"archive", &appconfig.Config{ArchiveBucket: "intake-archive"}, true},
		{"ses", &appconfig.Config{SESFromEmail: "intake@example.com"}, true},
		{"sendgrid wins over ses", &appconfig.Config{SESFromEmail: "intake@example.com", SendGridAPIKey: "sg"}, false},
	}
	for _, tc := range cases {
		if got := NeedsAWS(tc.cfg); got != tc.want {
			t.Errorf("%s: NeedsAWS = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %+v (%v)", creds, err)
	}
	ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("S3", "us-east-1")
	if err != nil || ep.URL != "http://localhost:4566" {
		t.Fatalf("expected s3 override, got %+v (%v)", ep, err)
	}
}
