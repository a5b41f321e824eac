package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published by the order lifecycle.
const (
	MetricOrdersSubmitted     = "OrdersSubmitted"
	MetricOrdersSyncFailed    = "OrdersSyncFailed"
	MetricOrdersPersistFailed = "OrdersPersistFailed"
)

// Metrics publishes lifecycle counters to CloudWatch.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		CloudWatch: client,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// Count publishes a single count datapoint for name, dimensioned by payment method when given.
func (m *Metrics) Count(ctx context.Context, name, paymentMethod string) error {
	datum := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      awsFloat(1),
		Timestamp:  awsTime(m.nowFunc()),
	}
	if paymentMethod != "" {
		datum.Dimensions = []cwtypes.Dimension{
			{Name: awsString("PaymentMethod"), Value: awsString(paymentMethod)},
		}
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  awsString(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data %s: %w", name, err)
	}
	return nil
}

func awsFloat(f float64) *float64 { return &f }
func awsTime(t time.Time) *time.Time { return &t }
