// Package queuesvc implements the topic operations consumed by the HTTP
// transport: publish, consume, length and a filtered overview of topics.
//
// Example:
//
//	svc := queuesvc.New(rt)
//	_ = svc.Publish(ctx, "orders", []byte("payload"))
//	msg, err := svc.Consume(ctx, "orders")
//	busy, _ := svc.Topics(ctx, "length > 100")
package queuesvc
