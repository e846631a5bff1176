/*
Package dyndns keeps a DNS address record pointed at the machine's
current public or local IP address.

Usage will always start with [New],
which returns the Client implementation.
New requires the hostname of the record to keep updated and a [Provider]
implementation for a DNS provider.
Additional client configuration options are listed in the docs for New.

Each call to [Client.Update] performs one reconciliation pass: determine
the current IP, compare it with the IP recorded by the last successful
pass, and if they differ replace the hostname's editable A records with
one record holding the current IP. A pass that finds nothing to do makes
no calls to the provider at all, which keeps the client polite enough to
run from cron as often as every minute.
*/
package dyndns
