// Package services contains the core application logic: the ingestion
// pipeline, retrieval and citation assembly, answer streaming, file
// library management and the vector cleanup janitor. Services depend
// only on ports, never on concrete adapters.
package services
