package constants

const TmpCSVFile = "batch.*.csv"
