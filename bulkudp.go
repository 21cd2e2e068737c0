/*
Package bulkudp ships structured logs to a bulk ingestion endpoint (an
Elasticsearch bulk UDP listener or a Logstash udp input with a json codec),
one JSON document per UDP datagram:

  - `bulkudp.Handler` - turns log records into size-bounded JSON packets
    (implements `slog.Handler`, and accepts raw `*Record`s via `Emit`)
  - `bulkudp.Client` - owns the shared UDP connection to the server
  - `bulkudp.Encoder` - provides the pooled packet buffer, bridging the
    `Handler` and `Client`

Every packet is a single JSON object terminated by a newline and never
exceeds `HandlerOptions.MaxPacketSize` bytes. Fields are written in a fixed
priority order:

	@version, @fields, message, logsource, severity, @timestamp, level,
	name, service, [debugging fields], [extra fields]

When the budget runs short, a field that does not fit is skipped, and once
fewer than 16 bytes remain no further fields are considered. The mandatory
fields therefore survive as long as any field does.

Delivery is best effort. Nothing is retried or acknowledged, and neither
serialization problems nor socket errors are ever returned to the code doing
the logging; they are reported through `InternalLogger()`.

	h, err := bulkudp.NewHandler("elk.internal", 9700, &bulkudp.HandlerOptions{
		Service: "billing",
	})
	if err != nil {
		log.Fatalln(err)
	}
	defer h.Shutdown(context.Background())

	logger := slog.New(h)
	defer bulkudp.LogPanic(logger)

	logger.Info("invoice sent", "user_id", 42)
	// {"@version":"1","@fields":{},"message":"invoice sent",...,"_user_id":42}
*/
package bulkudp
