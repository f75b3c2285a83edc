package alerts

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
)

// MetricFulfillmentFailures counts orders left paid but unfulfilled.
const MetricFulfillmentFailures = "FulfillmentFailures"

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "WhisperingTomes/Orders"

// CloudWatchAlerter publishes one datapoint per failed fulfillment. An alarm
// on the metric pages whoever owns the shop.
type CloudWatchAlerter struct {
	cw        aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

func NewCloudWatchAlerter(cw aws.CloudWatchAPI, namespace string) *CloudWatchAlerter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatchAlerter{cw: cw, namespace: namespace, nowFunc: time.Now}
}

// FulfillmentFailed records a failure at the given stage.
func (a *CloudWatchAlerter) FulfillmentFailed(ctx context.Context, stage string) error {
	_, err := a.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awssdk.String(a.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: awssdk.String(MetricFulfillmentFailures),
			Dimensions: []cwtypes.Dimension{{
				Name:  awssdk.String("Stage"),
				Value: awssdk.String(stage),
			}},
			Timestamp: awssdk.Time(a.nowFunc()),
			Unit:      cwtypes.StandardUnitCount,
			Value:     awssdk.Float64(1),
		}},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", MetricFulfillmentFailures, err)
	}
	return nil
}
