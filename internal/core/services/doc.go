// Package services holds the pipeline logic behind the driving ports:
// converting source exports, generating titles with model fallback,
// enriching record files, grouping records into a digest and sequencing
// the three stages.
//
// Services only talk to infrastructure through the driven ports.
package services
