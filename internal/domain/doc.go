// Package domain models Common Alerting Protocol (CAP) disaster alerts and
// sensor telemetry from the NDMA public alert feed.
//
// # Data Source
//
// Alerts originate from the NDMA Sachet CAP feed. The upstream collector
// fetches the feed, flattens each alert into a GeoJSON feature (geometry plus
// the alert's fields as properties), and publishes the resulting
// FeatureCollection to the raw-alert topic. Geometry is WGS-84
// (longitude-then-latitude, SRID 4326) and may be a Point (epicenter),
// Polygon, or MultiPolygon (warning zones); alerts without geometry are legal.
//
// # Feed Conventions
//
// Timestamps:
//
//	Effective times arrive in the feed's Java-style format with a timezone
//	abbreviation, e.g. "Sun Feb 01 10:34:17 IST 2026". The abbreviation is
//	ambiguous and dropped during parsing. RFC 3339 timestamps are also
//	accepted.
//
// Free text:
//
//	disaster_type, warning_message, and area_description are free text in
//	either English or Hindi. The language tag names the language of the
//	descriptive text but matching never depends on it: every category's
//	English and Hindi keyword lists are checked against the combined text.
//
// # Categorization
//
// [Categorize] maps an alert to one of a closed set of hazard categories by
// substring matching against bilingual keyword lists. Categories are
// evaluated in a fixed priority order (weather, then geological, then
// agricultural/environmental) and the first match wins, so text mentioning
// both a cyclone and an earthquake classifies as weather_cyclone. Matching
// is deliberately substring-based for compatibility with the feed's historic
// behavior; a hazard keyword embedded in an unrelated word is a known false
// positive.
//
// # Sensor Telemetry
//
// Sensor payloads are loosely structured JSON. [ParseSensorReading] extracts
// the sensor identifier and coordinates using case-insensitive field-name
// aliases (id/sensor_id, lat/latitude, long/longitude). A payload without an
// identifier is rejected; missing or unparseable coordinates leave the
// reading location-less but still storable.
package domain
