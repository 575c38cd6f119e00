package logging

// Catalog is the shared reference catalog for this module's packages.
var Catalog = References{
	"ENGEXPUTILS001": "Sonarcloud Group Created",
	"ENGEXPUTILS002": "Sonarcloud Group Would Be Created",
	"ENGEXPUTILS003": "Organisation doesn't exist in Sonarcloud",
	"ENGEXPUTILS004": "Sonarcloud API Call Errored",
	"ENGEXPUTILS005": "Project could not be found",
	"ENGEXPUTILS006": "MONGODB_URI environment variable not set",
	"ENGEXPUTILS007": "Connected To Database",
	"ENGEXPUTILS008": "Connection Failed",
	"ENGEXPUTILS009": "Disconnected From Database",
	"ENGEXPUTILS010": "Disconnection Failed",
	"ENGEXPUTILS011": "GitHub Client Created",
	"ENGEXPUTILS012": "Connecting To Database",
	"ENGEXPUTILS013": "Repository Metrics Collected",
	"ENGEXPUTILS014": "Aggregated Metrics Stored",
	"ENGEXPUTILS015": "Sonarcloud Request Failed",
	"ENGEXPUTILS016": "Creating Sonarcloud Group",
	"ENGEXPUTILS017": "Sonarcloud Group Creation Failed",
	"ENGEXPUTILS018": "Sonarcloud API Returned Error Status",
	"ENGEXPUTILS019": "Sonarcloud Project Missing, Recording As Disabled",
	"ENGEXPUTILS020": "Dependabot Alerts Unavailable, Recording As Disabled",
}
