package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/ppiankov/neurorouter"
)

// ConverseAPI is the slice of the Bedrock runtime client used here.
type ConverseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockConfig configures the Bedrock backend. Empty credentials fall
// back to the default AWS credential chain.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Model           string
	Temperature     float64
	MaxTokens       int
}

// Bedrock completes prompts through the Bedrock Converse API.
type Bedrock struct {
	api         ConverseAPI
	model       string
	temperature float64
	maxTokens   int
}

// NewBedrock loads AWS configuration and builds a runtime client.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock backend: load aws config: %w", err)
	}
	return NewBedrockWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockWithAPI builds the backend over an existing client.
func NewBedrockWithAPI(api ConverseAPI, cfg BedrockConfig) *Bedrock {
	return &Bedrock{
		api:         api,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (b *Bedrock) Name() string { return KindBedrock }

// Complete sends one user turn and joins the text blocks of the reply.
// Throttling wraps neurorouter.ErrRateLimited.
func (b *Bedrock) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := b.maxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	out, err := b.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(float32(b.temperature)),
		},
	})
	if err != nil {
		var throttled *types.ThrottlingException
		if errors.As(err, &throttled) {
			return "", fmt.Errorf("bedrock backend: %w: %v", neurorouter.ErrRateLimited, err)
		}
		return "", fmt.Errorf("bedrock backend: converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock backend: unexpected output type %T", out.Output)
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String(), nil
}
