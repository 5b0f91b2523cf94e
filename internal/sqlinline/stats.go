package sqlinline

const QStatsSummary = `--sql 5548ff61-42c6-4c2a-bc81-5519966b9071
select
  count(*) filter (where status = 'QUEUED')                                          as queued,
  count(*) filter (where status = 'RUNNING')                                         as running,
  count(*) filter (where status = 'SUCCEEDED')                                       as succeeded,
  count(*) filter (where status = 'PARTIAL')                                         as partial,
  count(*) filter (where status = 'FAILED')                                          as failed,
  count(*) filter (where created_at >= now() - interval '24 hours')                  as requests_last24,
  (select count(*) from generated_assets where created_at >= now() - interval '24 hours') as assets_last24
from generation_requests;
`
