// Package mqtt connects Armadillo Core to the MQTT broker that field devices
// publish telemetry to.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions (restored after every reconnect)
//   - Retained online/offline status with Last Will and Testament
//   - Connection health reporting
//
// Devices on a trailer publish one message per reading:
//
//	armadillo/telemetry/{kind}/{id}
//
// where kind is bike, oven or microgrid. The ingest package subscribes to
// Topics{}.AllTelemetry() and turns each message into a stored record.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllTelemetry(), 1,
//	    func(topic string, payload []byte) error {
//	        kind, id, err := mqtt.ParseTelemetryTopic(topic)
//	        ...
//	    })
package mqtt
